package product

import "errors"

var (
	ErrNotFound        = errors.New("product not found")
	ErrArticleNotFound = errors.New("article not found")
)
