package presence

import "errors"

var (
	// ErrInvalidCountMode 表示 device_limit_mode 配置了未知取值，属于致命配置错误。
	ErrInvalidCountMode = errors.New("presence: unsupported device limit mode / 不支持的设备限制模式")
	// ErrMalformedPayload 表示缓存中的在线数据整体无法解析。
	ErrMalformedPayload = errors.New("presence: malformed payload / 在线数据格式错误")
)
