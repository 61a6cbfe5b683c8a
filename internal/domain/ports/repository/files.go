package repository

import (
	"context"

	"media-courier-bot/internal/domain/model"
)

// FileStore is the durable output directory.
type FileStore interface {
	List(ctx context.Context) ([]model.StoredFile, error)
	Delete(ctx context.Context, name string) error
	Dir() string
}

// CredentialStore persists the cookie text the downloader authenticates with.
type CredentialStore interface {
	SaveCookies(ctx context.Context, text string) error
	CookiesPath() (string, bool)
}
