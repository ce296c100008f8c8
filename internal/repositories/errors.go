package repositories

import "errors"

var (
	ErrAPIClientNotFound = errors.New("api client not found")
	ErrDatabaseOperation = errors.New("database operation failed")
)
