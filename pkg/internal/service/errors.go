package service

import "errors"

// 业务错误. 调用方用 errors.Is 判断，HTTP 层据此映射状态码.
var (
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("link expired")
	ErrExhausted        = errors.New("download limit reached")
	ErrBadPassword      = errors.New("incorrect password")
	ErrPasswordRequired = errors.New("password required")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrStorageIO        = errors.New("storage i/o failure")
	ErrConflict         = errors.New("already exists")
	ErrSetupDone        = errors.New("setup already completed")
	ErrInactive         = errors.New("account disabled")
	ErrThrottled        = errors.New("too many failed attempts")
	ErrUnauthenticated  = errors.New("not authenticated")
)
