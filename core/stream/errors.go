package stream

import "errors"

var (
	ErrInvalidImplementation = errors.New("stream: invalid implementation")
	ErrInvalidInterface      = errors.New("stream: invalid interface")
	ErrNotAssignable         = errors.New("stream: interface not implemented by stream")
	ErrFactory               = errors.New("stream: default stream construction failed")

	ErrUnknownMethod   = errors.New("stream: unknown method")
	ErrInvalidArgument = errors.New("stream: invalid argument")
	ErrProxyClosed     = errors.New("stream: proxy closed")
	ErrResultType      = errors.New("stream: unexpected result type")
)
