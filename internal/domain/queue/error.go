package queue

import "errors"

var (
	ErrJobNotFound = errors.New("sync job not found")
	ErrTerminal    = errors.New("job is in a terminal state")
)
