package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

var (
	resultListSelectors = []browser.Selector{
		browser.CSS("li.reusable-search__result-container"),
		browser.CSS("div[data-chameleon-result-urn]"),
	}
	nextPageSelectors = []browser.Selector{
		browser.CSS("button.artdeco-pagination__button--next"),
		browser.CSS("button[aria-label='Next']"),
	}
)

// RodResults drives the people-search results in a live browser page
type RodResults struct {
	page        *browser.Page
	loadTimeout time.Duration
}

// NewRodResults creates a ResultsPage on page. loadTimeout bounds how long a results
// page may take to render its first item.
func NewRodResults(page *browser.Page, loadTimeout time.Duration) *RodResults {
	return &RodResults{page: page, loadTimeout: loadTimeout}
}

func (r *RodResults) Open(ctx context.Context, searchURL string) error {
	if err := r.page.Navigate(ctx, searchURL); err != nil {
		return err
	}
	if _, err := r.page.Find(ctx, r.loadTimeout, resultListSelectors...); err != nil {
		return fmt.Errorf("search results did not load: %w", err)
	}
	return nil
}

func (r *RodResults) Items(ctx context.Context) ([]string, error) {
	// Lazy-loaded cards only render once scrolled into view
	if err := r.page.Scroll(ctx, 1500); err != nil {
		return nil, err
	}
	if err := stealth.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return nil, err
	}

	for _, sel := range resultListSelectors {
		els, err := r.page.FindAll(ctx, sel.CSS)
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			continue
		}

		items := make([]string, 0, len(els))
		for _, el := range els {
			html, err := el.HTML()
			if err != nil {
				// Detached while reading; ParseCard rejects it with ErrEmptyItem
				items = append(items, "")
				continue
			}
			items = append(items, html)
		}
		return items, nil
	}
	return nil, nil
}

func (r *RodResults) NextPage(ctx context.Context) (bool, error) {
	next, err := r.page.Find(ctx, 3*time.Second, nextPageSelectors...)
	if errors.Is(err, browser.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	disabled, err := next.Attribute("disabled")
	if err != nil {
		return false, fmt.Errorf("failed to read next button state: %w", err)
	}
	if disabled != nil {
		return false, nil
	}

	if err := r.page.Click(ctx, next); err != nil {
		return false, fmt.Errorf("failed to click next page: %w", err)
	}
	if _, err := r.page.Find(ctx, r.loadTimeout, resultListSelectors...); err != nil {
		return false, fmt.Errorf("next results page did not load: %w", err)
	}
	return true, nil
}
