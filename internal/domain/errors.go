package domain

import "errors"

var (
	ErrHymnNotFound     = errors.New("hymn not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrNoActiveService  = errors.New("no active service")
	ErrHymnNotInService = errors.New("hymn not in service")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrNoCurrentService = errors.New("no current service loaded")
)
