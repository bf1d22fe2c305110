package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned by Start for a blank query.
	ErrEmptyQuery = errors.New("please enter a question")

	// ErrInvalidOptions is wrapped by every Options validation failure.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrAborted is the cause recorded for cancelled sessions.
	ErrAborted = errors.New("stream stopped")
)

// ConnectionError reports that the stream could not be opened or read.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ServerError is an error event sent by the endpoint.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}
