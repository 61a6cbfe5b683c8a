package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrEmptyRange         = errors.New("no episodes in requested range")
	ErrUnsupportedQuality = errors.New("unsupported quality")
	ErrNoResults          = errors.New("no results")
	ErrInvalidCredential  = errors.New("invalid credential text")

	// Job and infrastructure errors
	ErrDownloaderUnavailable = errors.New("downloader could not be started")
	ErrArtifactMissing       = errors.New("downloaded artifact not found")
	ErrQueueFull             = errors.New("worker queue full")
	ErrRateLimited           = errors.New("rate limited")
	ErrLocked                = errors.New("resource is locked")
)
