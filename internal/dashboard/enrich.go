// internal/dashboard/enrich.go
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github-dashboard/internal/model"
)

// FailureMode controls what an Enricher does when a secondary fetch fails.
type FailureMode int

const (
	// BestEffort degrades the failing field to its sentinel and keeps going.
	// This is the pipeline's mode: one repo's broken commit history must never
	// fail its sibling fields or sibling repositories.
	BestEffort FailureMode = iota
	// Strict propagates the first failure instead of degrading.
	Strict
)

// commitTimeFormat renders commit timestamps for display.
const commitTimeFormat = "Jan 2, 2006, 3:04 PM"

// Enricher augments a repository stub with its latest commit and language breakdown.
type Enricher struct {
	fetcher Fetcher
	mode    FailureMode
	logger  *slog.Logger
}

func NewEnricher(fetcher Fetcher, mode FailureMode, logger *slog.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, mode: mode, logger: logger}
}

// Enrich fills in the derived fields of one repository. A repo without a commit
// history reference keeps its sentinels and causes no upstream calls. The two
// secondary fetches run concurrently and degrade independently under BestEffort.
func (e *Enricher) Enrich(ctx context.Context, token string, repo model.Repository) (model.Repository, error) {
	if repo.CommitsRef == "" {
		return repo, nil
	}

	var (
		commit    *model.Commit
		commitErr error
		langBytes map[string]int
		langErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		commit, commitErr = e.fetcher.GetLatestCommit(gctx, token, repo.Owner, repo.Name)
		if commitErr != nil && e.mode == Strict {
			return fmt.Errorf("latest commit for %s/%s: %w", repo.Owner, repo.Name, commitErr)
		}
		return nil
	})
	g.Go(func() error {
		langBytes, langErr = e.fetcher.GetLanguages(gctx, token, repo.Owner, repo.Name)
		if langErr != nil && e.mode == Strict {
			return fmt.Errorf("languages for %s/%s: %w", repo.Owner, repo.Name, langErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return repo, err
	}

	if commitErr != nil {
		e.logger.Warn("Commit enrichment degraded", "owner", repo.Owner, "repo", repo.Name, "error", commitErr)
	} else if commit != nil {
		repo.LastCommit = formatCommitTime(commit.Date)
		repo.LastCommitMessage = commit.Message
	}

	if langErr != nil {
		e.logger.Warn("Language enrichment degraded", "owner", repo.Owner, "repo", repo.Name, "error", langErr)
	} else {
		repo.LanguageBytes = langBytes
		repo.Languages = languageShares(langBytes)
	}

	return repo, nil
}

// formatCommitTime renders an upstream RFC3339 timestamp for display, falling
// back to the sentinel when the timestamp is missing or malformed.
func formatCommitTime(raw string) string {
	if raw == "" {
		return model.Unavailable
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return model.Unavailable
	}
	return t.Format(commitTimeFormat)
}

// languageShares converts a byte histogram into percentage shares ordered by
// descending byte count. A zero total yields an empty slice; the guard matters
// because repositories with only ignored file types report an empty histogram.
func languageShares(bytes map[string]int) []model.LanguageShare {
	total := 0
	for _, b := range bytes {
		total += b
	}
	if total == 0 {
		return []model.LanguageShare{}
	}

	shares := make([]model.LanguageShare, 0, len(bytes))
	for lang, b := range bytes {
		shares = append(shares, model.LanguageShare{
			Language:   lang,
			Percentage: float64(b) / float64(total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return shares[i].Language < shares[j].Language
	})
	return shares
}

// Distribution reduces enriched repositories into the account-wide language
// byte totals. Values stay raw byte counts; percentage conversion is a
// presentation concern.
func Distribution(repos []model.Repository) map[string]int {
	dist := make(map[string]int)
	for _, repo := range repos {
		for lang, b := range repo.LanguageBytes {
			dist[lang] += b
		}
	}
	return dist
}
