// internal/model/models.go
package model

// Unavailable is the sentinel substituted for commit fields that could not be resolved.
const Unavailable = "Unavailable"

// Profile is the identity snapshot of the authenticated account.
type Profile struct {
	Login     string  `json:"login"`
	Name      *string `json:"name,omitempty"`
	AvatarURL string  `json:"avatar_url"`
	Bio       *string `json:"bio,omitempty"`
	Followers int     `json:"followers"`
	Following int     `json:"following"`
}

// Repository is the denormalized per-repo view model. The base fields come from
// the repository list endpoint; LastCommit, LastCommitMessage, Languages and
// LanguageBytes are filled in by enrichment and are best-effort.
type Repository struct {
	ID            int64   `json:"id"`
	Owner         string  `json:"owner"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	URL           string  `json:"html_url"`
	Private       bool    `json:"private"`
	StarsCount    int     `json:"stargazers_count"`
	ForksCount    int     `json:"forks_count"`
	WatchersCount int     `json:"watchers_count"`

	// CommitsRef and LanguagesRef are the upstream endpoint references carried
	// on the list payload. An empty CommitsRef means enrichment skips the repo.
	CommitsRef   string `json:"commits_url,omitempty"`
	LanguagesRef string `json:"languages_url,omitempty"`

	LastCommit        string          `json:"last_commit"`
	LastCommitMessage string          `json:"last_commit_message"`
	Languages         []LanguageShare `json:"languages"`

	// LanguageBytes is the raw histogram the percentage breakdown was computed
	// from. Retained so the account-wide distribution can reuse it instead of
	// fetching each histogram a second time.
	LanguageBytes map[string]int `json:"-"`
}

// LanguageShare is one language's slice of a repository, in percent of bytes.
type LanguageShare struct {
	Language   string  `json:"language"`
	Percentage float64 `json:"percentage"`
}

// Commit is the latest-commit projection used by enrichment.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Date    string `json:"date"` // RFC3339 as returned upstream; empty if unknown
}

// Follower is a single entry of the followers or following list.
type Follower struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// ActivityEvent is one public event of the account, newest first as returned upstream.
type ActivityEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	RepoName   string `json:"repo_name"`
	ActorLogin string `json:"actor_login,omitempty"`
	ActorURL   string `json:"actor_avatar_url,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// Dashboard is the fully aggregated view for one account. SectionErrors carries
// the per-section failures of non-fatal sections; a missing key means the
// section resolved cleanly.
type Dashboard struct {
	Profile       *Profile          `json:"profile"`
	Repositories  []Repository      `json:"repositories"`
	Languages     map[string]int    `json:"languages"` // account-wide byte totals
	Followers     []Follower        `json:"followers"`
	Following     []Follower        `json:"following"`
	Activity      []ActivityEvent   `json:"activity"`
	SectionErrors map[string]string `json:"section_errors,omitempty"`
}
