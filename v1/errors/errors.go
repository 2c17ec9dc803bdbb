package errors

import "errors"

var (
	ErrTimeout          = errors.New("fedit: timeout")
	ErrConnectionClosed = errors.New("fedit: connection closed")
)
