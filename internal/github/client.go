// internal/github/client.go
package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	apperrors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

const defaultBaseURL = "https://api.github.com"

// Client is a wrapper around the go-github client. It is stateless with respect
// to credentials: every call receives the session's bearer token and builds an
// authenticated http.Client from it, so one Client serves any number of sessions.
//
// All list operations fetch only the first upstream page (capped by pageSize).
// Accounts with more items than one page see a truncated view; this is a
// documented boundary of the dashboard, not transparent pagination.
type Client struct {
	baseURL  string
	limiter  *rate.Limiter
	logger   *slog.Logger
	pageSize int
}

// NewLimiter returns a rate limiter sized for an authenticated GitHub session.
// requestsPerHour should stay at or below the upstream quota (5000/hour).
func NewLimiter(requestsPerHour int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(requestsPerHour)/3600.0), requestsPerHour/100+1)
}

// NewClient creates and configures a new Client instance.
func NewClient(baseURL string, limiter *rate.Limiter, pageSize int, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		limiter:  limiter,
		logger:   logger,
		pageSize: pageSize,
	}
}

// api builds a go-github client authenticated with the given token.
func (c *Client) api(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if c.baseURL != defaultBaseURL {
		base, err := url.Parse(c.baseURL + "/")
		if err != nil {
			return nil, err
		}
		gh.BaseURL = base
	}
	return gh, nil
}

// wait blocks until the shared rate limiter admits one more upstream call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &apperrors.NetworkError{Err: err}
	}
	return nil
}

// GetProfile fetches the identity snapshot for the given account handle.
func (c *Client) GetProfile(ctx context.Context, token, handle string) (*model.Profile, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	user, _, err := gh.Users.Get(ctx, handle)
	if err != nil {
		return nil, translateError("profile", err)
	}
	return toProfile(user), nil
}

// GetAuthenticatedLogin resolves the bearer token to the login it authenticates.
// An invalid or expired token yields an AuthorizationError.
func (c *Client) GetAuthenticatedLogin(ctx context.Context, token string) (string, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return "", err
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && (ghErr.Response.StatusCode == http.StatusUnauthorized || ghErr.Response.StatusCode == http.StatusForbidden) {
			return "", &apperrors.AuthorizationError{Reason: "invalid token"}
		}
		return "", translateError("authenticated user", err)
	}
	if user.GetLogin() == "" {
		return "", &apperrors.AuthorizationError{Reason: "invalid token"}
	}
	return user.GetLogin(), nil
}

// ListRepositories fetches the first page of the account's repositories.
func (c *Client) ListRepositories(ctx context.Context, token, handle string) ([]model.Repository, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetching repository list", "handle", handle, "per_page", c.pageSize)
	repos, _, err := gh.Repositories.ListByUser(ctx, handle, &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: c.pageSize},
	})
	if err != nil {
		return nil, translateError("repositories", err)
	}

	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toRepository(r))
	}
	return out, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, token, owner, name string) (*model.Repository, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	repo, _, err := gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, translateError("repository", err)
	}
	r := toRepository(repo)
	return &r, nil
}

// GetLatestCommit fetches the single most recent commit of a repository.
// It returns nil without error when the repository has no commits.
func (c *Client) GetLatestCommit(ctx context.Context, token, owner, name string) (*model.Commit, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	commits, _, err := gh.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, translateError("commits", err)
	}
	if len(commits) == 0 {
		return nil, nil
	}
	return toCommit(commits[0]), nil
}

// GetLanguages fetches the raw language-to-bytes histogram of a repository.
func (c *Client) GetLanguages(ctx context.Context, token, owner, name string) (map[string]int, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	langs, _, err := gh.Repositories.ListLanguages(ctx, owner, name)
	if err != nil {
		return nil, translateError("languages", err)
	}
	return langs, nil
}

// ListFollowers fetches the first page of the account's followers.
func (c *Client) ListFollowers(ctx context.Context, token, handle string) ([]model.Follower, error) {
	return c.listUsers(ctx, token, handle, "followers")
}

// ListFollowing fetches the first page of accounts the user follows.
func (c *Client) ListFollowing(ctx context.Context, token, handle string) ([]model.Follower, error) {
	return c.listUsers(ctx, token, handle, "following")
}

func (c *Client) listUsers(ctx context.Context, token, handle, kind string) ([]model.Follower, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: c.pageSize}
	var users []*github.User
	if kind == "followers" {
		users, _, err = gh.Users.ListFollowers(ctx, handle, opts)
	} else {
		users, _, err = gh.Users.ListFollowing(ctx, handle, opts)
	}
	if err != nil {
		return nil, translateError(kind, err)
	}

	out := make([]model.Follower, 0, len(users))
	for _, u := range users {
		out = append(out, model.Follower{
			ID:        u.GetID(),
			Login:     u.GetLogin(),
			AvatarURL: u.GetAvatarURL(),
		})
	}
	return out, nil
}

// ListEvents fetches the account's most recent events, capped at limit.
func (c *Client) ListEvents(ctx context.Context, token, handle string, limit int) ([]model.ActivityEvent, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	events, _, err := gh.Activity.ListEventsPerformedByUser(ctx, handle, false, &github.ListOptions{
		PerPage: limit,
	})
	if err != nil {
		return nil, translateError("events", err)
	}

	out := make([]model.ActivityEvent, 0, limit)
	for _, e := range events {
		if len(out) == limit {
			break
		}
		out = append(out, toActivityEvent(e))
	}
	return out, nil
}

// CreateRepository creates a repository for the authenticated user.
func (c *Client) CreateRepository(ctx context.Context, token, name, description string, private bool) (*model.Repository, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	repo, _, err := gh.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
	})
	if err != nil {
		return nil, translateError("repository", err)
	}
	r := toRepository(repo)
	return &r, nil
}

// DeleteRepository deletes a repository. Upstream signals success with 204.
func (c *Client) DeleteRepository(ctx context.Context, token, owner, name string) error {
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := gh.Repositories.Delete(ctx, owner, name); err != nil {
		return translateError("repository", err)
	}
	return nil
}

// SetVisibility issues a partial update flipping the repository's private flag.
func (c *Client) SetVisibility(ctx context.Context, token, owner, name string, private bool) error {
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, _, err := gh.Repositories.Edit(ctx, owner, name, &github.Repository{
		Private: github.Bool(private),
	}); err != nil {
		return translateError("repository", err)
	}
	return nil
}

// translateError maps go-github failures onto the application error taxonomy.
func translateError(resource string, err error) error {
	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) {
		return &apperrors.UpstreamError{
			Status: rlErr.Response.StatusCode,
			Body:   rlErr.Message,
		}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		if ghErr.Response.StatusCode == http.StatusNotFound {
			return &apperrors.NotFoundError{Resource: resource}
		}
		return &apperrors.UpstreamError{
			Status: ghErr.Response.StatusCode,
			Body:   errorBody(ghErr),
		}
	}

	// No HTTP response was received at all.
	return &apperrors.NetworkError{Err: err}
}

// errorBody extracts the upstream error payload: the parsed JSON message when
// present, otherwise the raw body text (go-github re-populates the response
// body when the payload fails to unmarshal), otherwise the status text.
func errorBody(ghErr *github.ErrorResponse) string {
	if ghErr.Message != "" {
		return ghErr.Message
	}
	if ghErr.Response != nil && ghErr.Response.Body != nil {
		if raw, err := io.ReadAll(ghErr.Response.Body); err == nil {
			if body := strings.TrimSpace(string(raw)); body != "" {
				return body
			}
		}
	}
	return http.StatusText(ghErr.Response.StatusCode)
}

// toProfile translates a github.User object to our internal model.Profile.
func toProfile(u *github.User) *model.Profile {
	return &model.Profile{
		Login:     u.GetLogin(),
		Name:      u.Name,
		AvatarURL: u.GetAvatarURL(),
		Bio:       u.Bio,
		Followers: u.GetFollowers(),
		Following: u.GetFollowing(),
	}
}

// toRepository translates a github.Repository object to our internal model.Repository.
// Enrichment fields start at their sentinels.
func toRepository(r *github.Repository) model.Repository {
	return model.Repository{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		Description:   r.Description,
		URL:           r.GetHTMLURL(),
		Private:       r.GetPrivate(),
		StarsCount:    r.GetStargazersCount(),
		ForksCount:    r.GetForksCount(),
		WatchersCount: r.GetWatchersCount(),
		// The list payload carries the refs as URI templates.
		CommitsRef:        strings.ReplaceAll(r.GetCommitsURL(), "{/sha}", ""),
		LanguagesRef:      r.GetLanguagesURL(),
		LastCommit:        model.Unavailable,
		LastCommitMessage: model.Unavailable,
		Languages:         []model.LanguageShare{},
	}
}

// toCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toCommit(c *github.RepositoryCommit) *model.Commit {
	date := ""
	if d := c.GetCommit().GetCommitter().GetDate(); !d.IsZero() {
		date = d.Format(time.RFC3339)
	}
	return &model.Commit{
		SHA:     c.GetSHA(),
		Message: c.GetCommit().GetMessage(),
		Date:    date,
	}
}

// toActivityEvent translates a github.Event object to our internal model.ActivityEvent.
func toActivityEvent(e *github.Event) model.ActivityEvent {
	ev := model.ActivityEvent{
		ID:       e.GetID(),
		Type:     e.GetType(),
		RepoName: e.GetRepo().GetName(),
	}
	if actor := e.GetActor(); actor != nil {
		ev.ActorLogin = actor.GetLogin()
		ev.ActorURL = actor.GetAvatarURL()
	}
	if ts := e.GetCreatedAt(); !ts.IsZero() {
		ev.CreatedAt = ts.Format(time.RFC3339)
	}
	return ev
}
