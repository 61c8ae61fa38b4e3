package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ConnectLabel is the action label of a result that can receive a connection request
const ConnectLabel = "Connect"

// Card is what a single search result item shows
type Card struct {
	ActionLabel string
	ProfileURL  string
	Name        string
	Headline    string
	Location    string
}

// IsConnectable reports whether the card's primary action is Connect
func (c Card) IsConnectable() bool {
	return strings.EqualFold(c.ActionLabel, ConnectLabel)
}

var (
	nameSelectors = []string{
		"span[dir='ltr'] span[aria-hidden='true']",
		"span.entity-result__title-text a span[aria-hidden='true']",
		"span[dir='ltr']",
	}
	headlineSelectors = []string{
		".entity-result__primary-subtitle",
		"div.t-14.t-black.t-normal",
	}
	locationSelectors = []string{
		".entity-result__secondary-subtitle",
		"div.t-14.t-normal:not(.t-black)",
	}
	actionSelectors = []string{
		".entity-result__actions button .artdeco-button__text",
		"button.artdeco-button .artdeco-button__text",
		"button.artdeco-button",
	}
)

// ErrEmptyItem is returned for a result item with no markup, e.g. one detached while read
var ErrEmptyItem = errors.New("empty result item")

// ParseCard extracts a Card from the outer HTML of one result item. Missing fields are
// left empty; the caller decides which of them are required.
func ParseCard(html string) (Card, error) {
	if strings.TrimSpace(html) == "" {
		return Card{}, ErrEmptyItem
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Card{}, fmt.Errorf("failed to parse result item: %w", err)
	}

	var card Card
	card.ActionLabel = firstText(doc.Selection, actionSelectors)
	card.Name = firstText(doc.Selection, nameSelectors)
	card.Headline = firstText(doc.Selection, headlineSelectors)
	card.Location = firstText(doc.Selection, locationSelectors)

	doc.Find("a[href*='/in/']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		card.ProfileURL = CleanProfileURL(href)
		return card.ProfileURL == ""
	})

	if card.Name == "" {
		card.Name = clean(doc.Find("a[href*='/in/']").First().Text())
	}

	return card, nil
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if text := clean(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// clean collapses runs of whitespace
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
