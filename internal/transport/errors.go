package transport

import "errors"

var (
	ErrAlreadyConnected = errors.New("transport: connect called twice")
	ErrClosed           = errors.New("transport: channel closed")
	ErrRefused          = errors.New("transport: connection refused")
)
