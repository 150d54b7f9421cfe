package post

import "errors"

var (
	ErrPostNotFound = errors.New("post not found")
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrMatchPending = errors.New("matching image is awaiting ledger confirmation")
)
