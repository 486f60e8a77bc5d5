// internal/dashboard/fetcher.go
package dashboard

import (
	"context"

	"github-dashboard/internal/model"
)

// Fetcher is the read surface of the upstream client the pipeline depends on.
type Fetcher interface {
	GetProfile(ctx context.Context, token, handle string) (*model.Profile, error)
	ListRepositories(ctx context.Context, token, handle string) ([]model.Repository, error)
	GetLatestCommit(ctx context.Context, token, owner, name string) (*model.Commit, error)
	GetLanguages(ctx context.Context, token, owner, name string) (map[string]int, error)
	ListFollowers(ctx context.Context, token, handle string) ([]model.Follower, error)
	ListFollowing(ctx context.Context, token, handle string) ([]model.Follower, error)
	ListEvents(ctx context.Context, token, handle string, limit int) ([]model.ActivityEvent, error)
}

// Mutator is the write surface used by the mutation operations.
type Mutator interface {
	GetAuthenticatedLogin(ctx context.Context, token string) (string, error)
	GetRepository(ctx context.Context, token, owner, name string) (*model.Repository, error)
	CreateRepository(ctx context.Context, token, name, description string, private bool) (*model.Repository, error)
	DeleteRepository(ctx context.Context, token, owner, name string) error
	SetVisibility(ctx context.Context, token, owner, name string, private bool) error
}

// Session carries the account handle and the opaque bearer credential of one
// authenticated user. Both must be present before any query runs.
type Session struct {
	Handle string
	Token  string
}

func (s Session) valid() bool {
	return s.Handle != "" && s.Token != ""
}
