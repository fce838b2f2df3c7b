package repository

import "errors"

// Storage errors surfaced to the usecase layer. Concrete repositories
// translate their driver errors into these.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)
