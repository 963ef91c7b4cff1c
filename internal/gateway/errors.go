package gateway

import "errors"

var (
	ErrConnectionClosed         = errors.New("gateway connection closed")
	ErrWriteTimeout             = errors.New("gateway write timed out")
	ErrInvalidJSON              = errors.New("payload could not be encoded as JSON")
	ErrAlreadyConnected         = errors.New("gateway already connected")
	ErrDispatcherAlreadyRunning = errors.New("dispatcher is already running")
	ErrDispatcherNotRunning     = errors.New("dispatcher is not running")
	ErrEventChannelFull         = errors.New("event channel is full")
)
