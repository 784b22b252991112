package data

import "errors"

var (
	// ErrNotFound is returned when a node (profile, conversation list,
	// directory list, thread, blob) does not exist at the expected key.
	ErrNotFound = errors.New("not found")

	// ErrAccountExists is returned when registering an email twice.
	ErrAccountExists = errors.New("account already exists")

	// ErrBlobUpload and ErrBlobURL mirror the two ways a media upload fails.
	ErrBlobUpload = errors.New("failed to upload")
	ErrBlobURL    = errors.New("failed to get download url")
)
