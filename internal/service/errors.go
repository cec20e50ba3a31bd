package service

import "errors"

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized / 未授权")
	// ErrAccountDisabled indicates the account is banned.
	ErrAccountDisabled = errors.New("service: account disabled / 账号已禁用")
	// ErrInvalidServerType indicates node_type not recognized.
	ErrInvalidServerType = errors.New("service: invalid server type / 节点类型无效")
	// ErrInvalidUserID indicates a malformed or non-positive user id.
	ErrInvalidUserID = errors.New("service: invalid user id / 用户 ID 无效")
	// ErrInvalidPayload indicates a node report that cannot be accepted.
	ErrInvalidPayload = errors.New("service: invalid payload / 上报数据无效")
)
