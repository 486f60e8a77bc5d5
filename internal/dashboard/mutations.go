// internal/dashboard/mutations.go
package dashboard

import (
	"context"
	"errors"

	"github-dashboard/internal/cache"
	apperrors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

var (
	ErrNameRequired        = errors.New("repository name is required")
	ErrDescriptionRequired = errors.New("repository description is required")
)

// CreateRepository creates a repository for the authenticated user and, on
// success, re-fetches the repository list. There is no optimistic update: the
// cached list stays untouched until the upstream write is confirmed.
func (s *Service) CreateRepository(ctx context.Context, sess Session, name, description string, private bool) (*model.Repository, error) {
	if !sess.valid() {
		return nil, &apperrors.ErrMissingCredentials{}
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if description == "" {
		return nil, ErrDescriptionRequired
	}

	repo, err := s.mutator.CreateRepository(ctx, sess.Token, name, description, private)
	if err != nil {
		return nil, err
	}
	if repo == nil || repo.Name == "" {
		return nil, &apperrors.UpstreamError{Status: 500, Body: "created repository has no name"}
	}
	s.logger.Info("Repository created", "handle", sess.Handle, "repo", repo.Name, "private", private)

	if err := s.RefreshRepositories(ctx, sess); err != nil {
		s.logger.Warn("Repository list refresh after create failed", "handle", sess.Handle, "error", err)
	}
	return repo, nil
}

// DeleteRepository deletes one of the session user's repositories. Before the
// upstream DELETE it verifies that the token resolves to a valid identity and
// that the target repository is owned by that identity; an ownership mismatch
// is refused without ever issuing the DELETE. A confirmed delete triggers
// exactly one repository-list re-fetch and leaves sibling sections cached.
func (s *Service) DeleteRepository(ctx context.Context, sess Session, repoName string) error {
	if !sess.valid() || repoName == "" {
		return &apperrors.ErrMissingCredentials{}
	}

	login, err := s.mutator.GetAuthenticatedLogin(ctx, sess.Token)
	if err != nil {
		return err
	}

	repo, err := s.mutator.GetRepository(ctx, sess.Token, sess.Handle, repoName)
	if err != nil {
		return err
	}
	if repo.Owner != login {
		return &apperrors.AuthorizationError{Reason: "you are not the owner of this repository"}
	}

	if err := s.mutator.DeleteRepository(ctx, sess.Token, repo.Owner, repo.Name); err != nil {
		return err
	}
	s.logger.Info("Repository deleted", "handle", sess.Handle, "repo", repoName)

	if err := s.RefreshRepositories(ctx, sess); err != nil {
		s.logger.Warn("Repository list refresh after delete failed", "handle", sess.Handle, "error", err)
	}
	return nil
}

// ToggleVisibility issues the partial update flipping a repository between
// public and private. On success the cached flag flips in place with no list
// re-fetch; on failure the cached state is left untouched.
func (s *Service) ToggleVisibility(ctx context.Context, sess Session, repoName string, private bool) error {
	if !sess.valid() || repoName == "" {
		return &apperrors.ErrMissingCredentials{}
	}

	if err := s.mutator.SetVisibility(ctx, sess.Token, sess.Handle, repoName, private); err != nil {
		return err
	}
	s.logger.Info("Repository visibility updated", "handle", sess.Handle, "repo", repoName, "private", private)

	s.store.Update(cache.Key{Kind: cache.KindRepositories, Handle: sess.Handle}, func(data any) any {
		repos, ok := data.([]model.Repository)
		if !ok {
			return data
		}
		// Clone before flipping: the cached backing array is aliased by every
		// dashboard view handed out earlier, which may be serializing right now.
		updated := make([]model.Repository, len(repos))
		copy(updated, repos)
		for i := range updated {
			if updated[i].Name == repoName {
				updated[i].Private = private
			}
		}
		return updated
	})
	return nil
}
