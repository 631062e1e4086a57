package push

import "errors"

var (
	ErrNoItems      = errors.New("no entity ids given")
	ErrTooManyItems = errors.New("too many entity ids in one request")
	ErrRateLimited  = errors.New("push rate limit reached, try again later")
)
