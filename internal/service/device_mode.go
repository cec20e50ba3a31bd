package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const (
	deviceLimitModeKey = "device_limit_mode"
	deviceModeTTL      = 60 * time.Second
)

// DeviceModeResolver reads device_limit_mode from settings, falling back to
// the configured default. Valid results are cached for a minute; an invalid
// value is reported on every call and never cached.
type DeviceModeResolver struct {
	settings repository.SettingRepository
	fallback int
	now      func() time.Time

	modeValue   atomic.Int64
	modeExpires atomic.Int64
}

var _ presence.ModeSource = (*DeviceModeResolver)(nil)

func NewDeviceModeResolver(settings repository.SettingRepository, fallback int) *DeviceModeResolver {
	return &DeviceModeResolver{settings: settings, fallback: fallback, now: time.Now}
}

func (r *DeviceModeResolver) CountMode(ctx context.Context) (presence.CountMode, error) {
	now := r.now().UnixNano()
	if now < r.modeExpires.Load() {
		return presence.CountMode(r.modeValue.Load()), nil
	}
	mode, err := r.lookup(ctx)
	if err != nil {
		return 0, err
	}
	r.modeValue.Store(int64(mode))
	r.modeExpires.Store(now + int64(deviceModeTTL))
	return mode, nil
}

func (r *DeviceModeResolver) lookup(ctx context.Context) (presence.CountMode, error) {
	if r.settings != nil {
		setting, err := r.settings.Get(ctx, deviceLimitModeKey)
		switch {
		case err == nil && strings.TrimSpace(setting.Value) != "":
			mode, perr := presence.ParseCountModeString(setting.Value)
			if perr != nil {
				return 0, fmt.Errorf("setting %s: %w", deviceLimitModeKey, perr)
			}
			return mode, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return 0, fmt.Errorf("read %s: %w", deviceLimitModeKey, err)
		}
	}
	mode, err := presence.ParseCountMode(r.fallback)
	if err != nil {
		return 0, fmt.Errorf("presence.device_limit_mode: %w", err)
	}
	return mode, nil
}
