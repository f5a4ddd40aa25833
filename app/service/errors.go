package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrCallbackRejected    = errors.New("callback rejected")
	ErrCallbackSignature   = errors.New("callback signature invalid")
)
