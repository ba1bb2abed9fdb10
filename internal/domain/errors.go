package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a create collided with an existing entity.
	ErrAlreadyExists = errors.New("already exists")
)
