package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

type SigningKeySource string

const (
	defaultSigningKey    = "change-me"
	signingKeySettingKey = "auth_signing_key"
	signingKeyCategory   = "security"

	SigningKeySourceConfig    SigningKeySource = "config"
	SigningKeySourceSettings  SigningKeySource = "settings"
	SigningKeySourceGenerated SigningKeySource = "generated"
)

// ResolveSigningKey picks the JWT signing key: config/env first, then the
// settings table, otherwise a random key that is persisted for next start.
func ResolveSigningKey(ctx context.Context, settings repository.SettingRepository, configured string, now func() time.Time) (string, SigningKeySource, error) {
	return resolveSigningKey(ctx, settings, configured, now, rand.Reader)
}

func resolveSigningKey(ctx context.Context, settings repository.SettingRepository, configured string, now func() time.Time, random io.Reader) (string, SigningKeySource, error) {
	if key := strings.TrimSpace(configured); key != "" && key != defaultSigningKey {
		return key, SigningKeySourceConfig, nil
	}
	if settings == nil {
		return "", "", errors.New("resolve signing key: settings repository is required; set XBOARD_AUTH_SIGNING_KEY")
	}
	existing, err := settings.Get(ctx, signingKeySettingKey)
	switch {
	case err == nil && strings.TrimSpace(existing.Value) != "":
		return strings.TrimSpace(existing.Value), SigningKeySourceSettings, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return "", "", fmt.Errorf("read signing key: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", "", fmt.Errorf("generate signing key: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	generated := hex.EncodeToString(buf)
	if err := settings.Upsert(ctx, &repository.Setting{
		Key:       signingKeySettingKey,
		Value:     generated,
		Category:  signingKeyCategory,
		UpdatedAt: now().Unix(),
	}); err != nil {
		return "", "", fmt.Errorf("persist signing key: %w", err)
	}
	return generated, SigningKeySourceGenerated, nil
}
