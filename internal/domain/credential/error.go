package credential

import "errors"

var (
	ErrNotFound            = errors.New("store connection not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidBlob         = errors.New("credential blob is malformed")
	ErrNotOwner            = errors.New("store does not belong to user")
)
