package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/linkedin-connect/internal/stealth"
)

// ErrNotFound is returned when none of the selectors matched before the timeout
var ErrNotFound = errors.New("element not found")

// Selector locates an element by CSS and, optionally, by a JavaScript regex matched
// against its visible text
type Selector struct {
	CSS  string
	Text string
}

// CSS is shorthand for a pure CSS selector
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// WithText is shorthand for a CSS selector filtered by text
func WithText(css, text string) Selector {
	return Selector{CSS: css, Text: text}
}

func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return fmt.Sprintf("%s /%s/", s.CSS, s.Text)
}

func describe(sels []Selector) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Page wraps a rod page with context-aware, bounded waits and humanised input
type Page struct {
	rod     *rod.Page
	mouse   *stealth.Mouse
	typist  stealth.Typist
	timeout time.Duration
}

// NewPage wraps p. timeout bounds navigation when the caller gives none.
func NewPage(p *rod.Page, timeout time.Duration, typist stealth.Typist) *Page {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Page{rod: p, mouse: stealth.NewMouse(p), typist: typist, timeout: timeout}
}

// Rod exposes the underlying rod page
func (p *Page) Rod() *rod.Page {
	return p.rod
}

// Navigate opens url and waits for the load event
func (p *Page) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	page := p.rod.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// Find polls until the first of sels appears or timeout elapses
func (p *Page) Find(ctx context.Context, timeout time.Duration, sels ...Selector) (*rod.Element, error) {
	if len(sels) == 0 {
		return nil, fmt.Errorf("%w: no selectors given", ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	race := p.rod.Context(ctx).Race()
	for _, s := range sels {
		if s.Text == "" {
			race = race.Element(s.CSS)
		} else {
			race = race.ElementR(s.CSS, s.Text)
		}
	}

	el, err := race.Do()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, describe(sels), err)
	}
	return el.Context(context.Background()), nil
}

// FindAll returns every element currently matching css without waiting
func (p *Page) FindAll(ctx context.Context, css string) (rod.Elements, error) {
	els, err := p.rod.Context(ctx).Elements(css)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", css, err)
	}
	return els, nil
}

// Click moves the mouse to el along a curved path and clicks it
func (p *Page) Click(ctx context.Context, el *rod.Element) error {
	return p.mouse.Click(ctx, el)
}

// Type enters text into el with human-like keystroke timing
func (p *Page) Type(ctx context.Context, el *rod.Element, text string) error {
	return p.typist.Type(ctx, el, text)
}

// TypeExact enters text without simulated typos
func (p *Page) TypeExact(ctx context.Context, el *rod.Element, text string) error {
	t := p.typist
	t.TypoRate = 0
	return t.Type(ctx, el, text)
}

// Clear removes the current contents of an input
func (p *Page) Clear(ctx context.Context, el *rod.Element) error {
	return stealth.Clear(ctx, el)
}

// Scroll scrolls the window by dy pixels in a few steps
func (p *Page) Scroll(ctx context.Context, dy int) error {
	const steps = 3
	for i := 0; i < steps; i++ {
		if _, err := p.rod.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy/steps); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if err := stealth.Pause(ctx, 80*time.Millisecond, 250*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
