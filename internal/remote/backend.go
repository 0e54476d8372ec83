// Package remote defines the sync backend contract and its
// implementations: an in-memory backend, an HTTP client and an HTTP
// server that exposes any backend.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/tada/internal/model"
)

// ErrNoAccount means no remote account is configured. Sync stays inert.
var ErrNoAccount = errors.New("no remote account")

// ErrNotFound is returned when a shared entity does not exist remotely.
var ErrNotFound = errors.New("not found remotely")

// AuthError indicates that authentication has failed or expired.
// It is returned by the client when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// AccountStatus describes the remote account of this installation.
type AccountStatus string

const (
	AccountAvailable  AccountStatus = "available"
	AccountNoAccount  AccountStatus = "no_account"
	AccountRestricted AccountStatus = "restricted"
)

// PullResult is a page of remote changes after a cursor.
type PullResult struct {
	Records []model.Record `json:"records"`
	Cursor  string         `json:"cursor"`
}

// ShareHandle identifies a share record for a list.
type ShareHandle struct {
	ListID string `json:"list_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// Backend is the remote entity-sync service.
type Backend interface {
	AccountStatus(ctx context.Context) (AccountStatus, error)

	// Push uploads field-tagged records written by device.
	Push(ctx context.Context, device string, records []model.Record) error

	// Pull returns the changes after cursor in the order the backend
	// accepted them, and the cursor to resume from. The device's own writes
	// are included so that it can tell which remote values they superseded.
	Pull(ctx context.Context, device, cursor string) (PullResult, error)

	Share(ctx context.Context, listID, title string) (ShareHandle, error)
	IsShared(ctx context.Context, listID string) (bool, error)
}
