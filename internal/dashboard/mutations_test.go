// internal/dashboard/mutations_test.go
package dashboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-dashboard/internal/cache"
	apperrors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

func TestService_CreateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a name and a description", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		_, err := svc.CreateRepository(ctx, testSession, "", "a description", false)
		assert.ErrorIs(t, err, ErrNameRequired)

		_, err = svc.CreateRepository(ctx, testSession, "shiny", "", false)
		assert.ErrorIs(t, err, ErrDescriptionRequired)

		client.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates and re-fetches the repository list", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		created := &model.Repository{ID: 42, Owner: "octocat", Name: "shiny", Private: true}
		client.On("CreateRepository", mock.Anything, "token", "shiny", "a new repo", true).
			Return(created, nil).Once()
		client.On("ListRepositories", mock.Anything, "token", "octocat").
			Return([]model.Repository{repoStub(42, "shiny", false)}, nil).Once()

		repo, err := svc.CreateRepository(ctx, testSession, "shiny", "a new repo", true)

		require.NoError(t, err)
		assert.Equal(t, "shiny", repo.Name)
		client.AssertExpectations(t)
	})

	t.Run("failure leaves the cached list untouched", func(t *testing.T) {
		client := new(MockClient)
		svc, store := newTestService(client)

		repoKey := cache.Key{Kind: cache.KindRepositories, Handle: "octocat"}
		store.Resolve(repoKey, []model.Repository{repoStub(1, "existing", false)}, nil)

		client.On("CreateRepository", mock.Anything, "token", "dup", "desc", false).
			Return(nil, &apperrors.UpstreamError{Status: 422, Body: "name already exists"}).Once()

		_, err := svc.CreateRepository(ctx, testSession, "dup", "desc", false)

		var upErr *apperrors.UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, 422, upErr.Status)

		entry, ok := store.Get(repoKey)
		require.True(t, ok)
		repos := entry.Data.([]model.Repository)
		assert.Equal(t, "existing", repos[0].Name)
		client.AssertNotCalled(t, "ListRepositories", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_DeleteRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses deletion when the caller does not own the repo", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		client.On("GetAuthenticatedLogin", mock.Anything, "token").Return("octocat", nil).Once()
		client.On("GetRepository", mock.Anything, "token", "octocat", "borrowed").
			Return(&model.Repository{Owner: "someone-else", Name: "borrowed"}, nil).Once()

		err := svc.DeleteRepository(ctx, testSession, "borrowed")

		var authErr *apperrors.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		client.AssertNotCalled(t, "DeleteRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "ListRepositories", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refuses deletion for an invalid token", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		client.On("GetAuthenticatedLogin", mock.Anything, "token").
			Return("", &apperrors.AuthorizationError{Reason: "invalid token"}).Once()

		err := svc.DeleteRepository(ctx, testSession, "a")

		var authErr *apperrors.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		client.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "DeleteRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing repository surfaces a NotFoundError", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		client.On("GetAuthenticatedLogin", mock.Anything, "token").Return("octocat", nil).Once()
		client.On("GetRepository", mock.Anything, "token", "octocat", "ghost").
			Return(nil, &apperrors.NotFoundError{Resource: "repository"}).Once()

		err := svc.DeleteRepository(ctx, testSession, "ghost")

		var nfErr *apperrors.NotFoundError
		assert.ErrorAs(t, err, &nfErr)
		client.AssertNotCalled(t, "DeleteRepository", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("confirmed delete re-fetches repos once and keeps sibling sections", func(t *testing.T) {
		client := new(MockClient)
		svc, store := newTestService(client)

		followers := []model.Follower{{ID: 9, Login: "hubber"}}
		followerKey := cache.Key{Kind: cache.KindFollowers, Handle: "octocat"}
		activityKey := cache.Key{Kind: cache.KindActivity, Handle: "octocat"}
		store.Resolve(followerKey, followers, nil)
		store.Resolve(activityKey, []model.ActivityEvent{{ID: "1"}}, nil)

		client.On("GetAuthenticatedLogin", mock.Anything, "token").Return("octocat", nil).Once()
		client.On("GetRepository", mock.Anything, "token", "octocat", "old").
			Return(&model.Repository{Owner: "octocat", Name: "old"}, nil).Once()
		client.On("DeleteRepository", mock.Anything, "token", "octocat", "old").Return(nil).Once()
		client.On("ListRepositories", mock.Anything, "token", "octocat").
			Return([]model.Repository{}, nil).Once()

		err := svc.DeleteRepository(ctx, testSession, "old")

		require.NoError(t, err)
		// Exactly one list re-fetch, asserted by the .Once() expectation.
		client.AssertExpectations(t)

		entry, ok := store.Get(followerKey)
		require.True(t, ok, "followers must survive a repo delete")
		assert.Equal(t, followers, entry.Data)
		_, ok = store.Get(activityKey)
		assert.True(t, ok, "activity must survive a repo delete")
	})

	t.Run("upstream failure surfaces status and payload without a re-fetch", func(t *testing.T) {
		client := new(MockClient)
		svc, _ := newTestService(client)

		client.On("GetAuthenticatedLogin", mock.Anything, "token").Return("octocat", nil).Once()
		client.On("GetRepository", mock.Anything, "token", "octocat", "locked").
			Return(&model.Repository{Owner: "octocat", Name: "locked"}, nil).Once()
		client.On("DeleteRepository", mock.Anything, "token", "octocat", "locked").
			Return(&apperrors.UpstreamError{Status: 403, Body: "Must have admin rights to Repository."}).Once()

		err := svc.DeleteRepository(ctx, testSession, "locked")

		var upErr *apperrors.UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, 403, upErr.Status)
		client.AssertNotCalled(t, "ListRepositories", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ToggleVisibility(t *testing.T) {
	ctx := context.Background()

	t.Run("success flips the cached flag with no list re-fetch", func(t *testing.T) {
		client := new(MockClient)
		svc, store := newTestService(client)

		repoKey := cache.Key{Kind: cache.KindRepositories, Handle: "octocat"}
		store.Resolve(repoKey, []model.Repository{repoStub(1, "a", false)}, nil)

		client.On("SetVisibility", mock.Anything, "token", "octocat", "a", true).Return(nil).Once()

		err := svc.ToggleVisibility(ctx, testSession, "a", true)

		require.NoError(t, err)
		entry, _ := store.Get(repoKey)
		repos := entry.Data.([]model.Repository)
		assert.True(t, repos[0].Private)
		client.AssertNotCalled(t, "ListRepositories", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("does not write through views handed out before the toggle", func(t *testing.T) {
		client := new(MockClient)
		svc, store := newTestService(client)

		repoKey := cache.Key{Kind: cache.KindRepositories, Handle: "octocat"}
		store.Resolve(repoKey, []model.Repository{repoStub(1, "a", false)}, nil)

		// A view obtained before the toggle shares the cached backing array.
		entry, _ := store.Get(repoKey)
		earlierView := entry.Data.([]model.Repository)

		client.On("SetVisibility", mock.Anything, "token", "octocat", "a", true).Return(nil).Once()

		// Serialize the earlier view concurrently with the toggle; a flip that
		// mutated the shared array in place would race with the encoder here.
		done := make(chan error, 1)
		go func() {
			for range 100 {
				if _, err := json.Marshal(earlierView); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
		err := svc.ToggleVisibility(ctx, testSession, "a", true)
		require.NoError(t, <-done)

		require.NoError(t, err)
		assert.False(t, earlierView[0].Private, "earlier views must keep the state they were handed out with")
		entry, _ = store.Get(repoKey)
		repos := entry.Data.([]model.Repository)
		assert.True(t, repos[0].Private)
	})

	t.Run("failure leaves the cached flag unchanged", func(t *testing.T) {
		client := new(MockClient)
		svc, store := newTestService(client)

		repoKey := cache.Key{Kind: cache.KindRepositories, Handle: "octocat"}
		store.Resolve(repoKey, []model.Repository{repoStub(1, "a", false)}, nil)

		client.On("SetVisibility", mock.Anything, "token", "octocat", "a", true).
			Return(&apperrors.UpstreamError{Status: 403, Body: "forbidden"}).Once()

		err := svc.ToggleVisibility(ctx, testSession, "a", true)

		var upErr *apperrors.UpstreamError
		require.ErrorAs(t, err, &upErr)
		entry, _ := store.Get(repoKey)
		repos := entry.Data.([]model.Repository)
		assert.False(t, repos[0].Private)
	})
}
