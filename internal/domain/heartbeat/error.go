package heartbeat

import "errors"

var ErrNotFound = errors.New("heartbeat not found")
