package importer

import "errors"

var (
	ErrJobNotFound  = errors.New("import job not found")
	ErrNotResumable = errors.New("import job is not resumable")
)
