package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const (
	BaseURL         = "https://www.linkedin.com"
	PeopleSearchURL = BaseURL + "/search/results/people/"

	DefaultMaxPages = 10
)

// Criteria describes who to look for. It is built once from config and never mutated.
type Criteria struct {
	Company           string
	Location          string
	RoleCategory      string
	NoteTemplate      string
	MaxCandidates     int
	MutualConnections bool
}

// CriteriaFromConfig builds the search criteria from configuration
func CriteriaFromConfig(cfg *config.Config) Criteria {
	return Criteria{
		Company:           cfg.Search.CompanyName,
		Location:          cfg.Search.Location,
		RoleCategory:      cfg.Search.RoleCategory,
		NoteTemplate:      cfg.ConnectionMessage,
		MaxCandidates:     cfg.Search.MaxRequests,
		MutualConnections: cfg.Search.MutualConnections,
	}
}

// Candidate is a person found by the search who can be sent a connection request
type Candidate struct {
	Name       string
	ProfileURL string
	Headline   string
	Location   string
}

// Status tags the outcome of inspecting one result item
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ItemResult is the outcome of inspecting one result item
type ItemResult struct {
	Status    Status
	Reason    string
	Candidate Candidate
}

var (
	ErrNoProfileLink = errors.New("result item has no profile link")
	ErrNoName        = errors.New("result item has no name")
)

// ResultsPage is the people-search surface the scanner drives
type ResultsPage interface {
	// Open loads the search results for searchURL
	Open(ctx context.Context, searchURL string) error
	// Items returns the outer HTML of every result item on the current page
	Items(ctx context.Context) ([]string, error)
	// NextPage advances to the next results page; false means there is none
	NextPage(ctx context.Context) (bool, error)
}

// Ledger remembers profiles across runs
type Ledger interface {
	HasContacted(ctx context.Context, profileURL string) (bool, error)
	SaveCandidate(ctx context.Context, c storage.Candidate) error
}

// Scanner collects connectable candidates from the people search
type Scanner struct {
	results  ResultsPage
	ledger   Ledger
	log      *zap.SugaredLogger
	maxPages int
	pause    func(ctx context.Context) error
}

// Option configures a Scanner
type Option func(*Scanner)

// WithLedger skips profiles contacted in earlier runs and records new ones
func WithLedger(l Ledger) Option {
	return func(s *Scanner) { s.ledger = l }
}

// WithMaxPages caps the number of result pages visited
func WithMaxPages(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithPagePause sets a random pause between result pages
func WithPagePause(min, max time.Duration) Option {
	return func(s *Scanner) {
		s.pause = func(ctx context.Context) error { return stealth.Pause(ctx, min, max) }
	}
}

// NewScanner creates a Scanner over results
func NewScanner(results ResultsPage, log *zap.SugaredLogger, opts ...Option) *Scanner {
	s := &Scanner{
		results:  results,
		log:      logger.OrNop(log),
		maxPages: DefaultMaxPages,
		pause:    func(ctx context.Context) error { return stealth.Pause(ctx, 3*time.Second, 6*time.Second) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns at most criteria.MaxCandidates connectable candidates with pairwise
// distinct profile URLs, in the order they appear. Running out of pages yields a
// shorter slice. Failures never propagate; a search that cannot be opened yields an
// empty slice.
func (s *Scanner) Scan(ctx context.Context, criteria Criteria) []Candidate {
	candidates := []Candidate{}
	if criteria.MaxCandidates <= 0 {
		return candidates
	}

	searchURL := BuildSearchURL(criteria)
	s.log.Infow("Starting profile search", "url", searchURL, "max_candidates", criteria.MaxCandidates, "max_pages", s.maxPages)

	if err := s.results.Open(ctx, searchURL); err != nil {
		s.log.Errorw("Error during profile search", "error", err)
		return candidates
	}

	seen := make(map[string]bool)

	for pageNum := 1; pageNum <= s.maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			s.log.Warnw("Profile search cancelled", "page", pageNum, "error", err)
			return candidates
		}

		items, err := s.results.Items(ctx)
		if err != nil {
			s.log.Errorw("Failed to read search results", "page", pageNum, "error", err)
			break
		}
		s.log.Infow("Found profile elements on current page", "page", pageNum, "count", len(items))
		if len(items) == 0 {
			break
		}

		fresh := 0
		for i, html := range items {
			if ctx.Err() != nil {
				return candidates
			}

			res, isNew := s.safeInspect(ctx, html, seen)
			if isNew {
				fresh++
			}

			switch res.Status {
			case StatusOK:
				candidates = append(candidates, res.Candidate)
				s.log.Infow("Added new profile to connect",
					"name", res.Candidate.Name,
					"title", res.Candidate.Headline,
					"url", res.Candidate.ProfileURL,
				)
				if len(candidates) >= criteria.MaxCandidates {
					s.log.Infow("Profile search completed", "total_found", len(candidates))
					return candidates
				}
			case StatusSkipped:
				s.log.Debugw("Skipping result", "page", pageNum, "index", i, "reason", res.Reason)
			case StatusFailed:
				s.log.Warnw("Error extracting profile data", "page", pageNum, "index", i, "reason", res.Reason)
			}
		}

		// The list did not move; asking for another page would loop on the same items
		if fresh == 0 {
			s.log.Warnw("Results page repeated already-seen profiles, stopping", "page", pageNum)
			break
		}

		if pageNum == s.maxPages {
			s.log.Infow("Reached page limit", "max_pages", s.maxPages)
			break
		}

		hasNext, err := s.results.NextPage(ctx)
		if err != nil {
			s.log.Warnw("Failed to go to next page", "page", pageNum, "error", err)
			break
		}
		if !hasNext {
			s.log.Infow("No more pages available", "page", pageNum)
			break
		}

		if err := s.pause(ctx); err != nil {
			return candidates
		}
	}

	s.log.Infow("Profile search completed", "total_found", len(candidates))
	return candidates
}

// safeInspect runs inspect and turns a panic into a failed item
func (s *Scanner) safeInspect(ctx context.Context, html string, seen map[string]bool) (res ItemResult, isNew bool) {
	defer func() {
		if r := recover(); r != nil {
			res, isNew = ItemResult{Status: StatusFailed, Reason: fmt.Sprintf("unexpected failure: %v", r)}, false
		}
	}()
	return s.inspect(ctx, html, seen)
}

// inspect classifies one result item. isNew reports whether its profile URL had not
// been seen earlier in the run.
func (s *Scanner) inspect(ctx context.Context, html string, seen map[string]bool) (res ItemResult, isNew bool) {
	card, err := ParseCard(html)
	if err != nil {
		return ItemResult{Status: StatusFailed, Reason: err.Error()}, false
	}

	if card.ProfileURL != "" && !seen[card.ProfileURL] {
		seen[card.ProfileURL] = true
		isNew = true
	}

	if !card.IsConnectable() {
		label := card.ActionLabel
		if label == "" {
			label = "none"
		}
		return ItemResult{Status: StatusSkipped, Reason: fmt.Sprintf("action is %q", label)}, isNew
	}
	if card.ProfileURL == "" {
		return ItemResult{Status: StatusFailed, Reason: ErrNoProfileLink.Error()}, false
	}
	if !isNew {
		return ItemResult{Status: StatusSkipped, Reason: "duplicate profile " + card.ProfileURL}, false
	}
	if card.Name == "" {
		return ItemResult{Status: StatusFailed, Reason: ErrNoName.Error()}, isNew
	}

	if s.ledger != nil {
		contacted, err := s.ledger.HasContacted(ctx, card.ProfileURL)
		if err != nil {
			// Don't skip on error
			s.log.Warnw("Failed to check request history", "url", card.ProfileURL, "error", err)
		} else if contacted {
			return ItemResult{Status: StatusSkipped, Reason: "already contacted " + card.ProfileURL}, isNew
		}
	}

	candidate := Candidate{
		Name:       card.Name,
		ProfileURL: card.ProfileURL,
		Headline:   card.Headline,
		Location:   card.Location,
	}

	if s.ledger != nil {
		err := s.ledger.SaveCandidate(ctx, storage.Candidate{
			ProfileURL: candidate.ProfileURL,
			Name:       candidate.Name,
			Headline:   candidate.Headline,
			Location:   candidate.Location,
		})
		if err != nil {
			s.log.Warnw("Failed to save profile", "url", candidate.ProfileURL, "error", err)
		}
	}

	return ItemResult{Status: StatusOK, Candidate: candidate}, isNew
}

// BuildSearchURL constructs the people-search URL for criteria
func BuildSearchURL(criteria Criteria) string {
	params := url.Values{}
	params.Set("keywords", criteria.RoleCategory)
	if criteria.Company != "" {
		params.Set("company", criteria.Company)
	}
	if criteria.Location != "" {
		params.Set("location", criteria.Location)
	}

	// 2nd-degree connections always share at least one mutual connection
	if criteria.MutualConnections {
		params.Set("network", `["S"]`)
	} else {
		params.Set("network", `["S","O"]`)
	}
	params.Set("origin", "FACETED_SEARCH")

	return PeopleSearchURL + "?" + params.Encode()
}

// CleanProfileURL returns the canonical absolute form of a profile link: no query,
// fragment or trailing slash. Links that are not profile links yield "".
func CleanProfileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(u.Path, "/in/") || len(strings.Trim(u.Path, "/")) <= len("in") {
		return ""
	}

	host := u.Host
	if host == "" {
		host = "www.linkedin.com"
	}
	if host != "www.linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") && host != "linkedin.com" {
		return ""
	}

	return "https://www.linkedin.com" + strings.TrimRight(u.Path, "/")
}
