package connection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

var (
	connectSelectors = []browser.Selector{
		browser.WithText("main button.pvs-profile-actions__action", `^\s*Connect\s*$`),
		browser.CSS("main button[aria-label$='to connect']"),
		browser.WithText("main button.artdeco-button--primary", `^\s*Connect\s*$`),
	}
	moreSelectors = []browser.Selector{
		browser.CSS("main button[aria-label='More actions']"),
		browser.WithText("main button.artdeco-dropdown__trigger", `^\s*More\s*$`),
	}
	menuConnectSelectors = []browser.Selector{
		browser.CSS("div.artdeco-dropdown__content [aria-label$='to connect']"),
		browser.WithText("div.artdeco-dropdown__content div.artdeco-dropdown__item", `^\s*Connect\s*$`),
		browser.WithText("div[role='menu'] span", `^\s*Connect\s*$`),
	}
	addNoteSelectors = []browser.Selector{
		browser.CSS("button[aria-label='Add a note']"),
		browser.WithText("div[role='dialog'] button", `Add a note`),
	}
	noteInputSelectors = []browser.Selector{
		browser.CSS("textarea[name='message']"),
		browser.CSS("textarea#custom-message"),
		browser.CSS("textarea[id*='custom-message']"),
	}
	sendSelectors = []browser.Selector{
		browser.CSS("button[aria-label='Send now']"),
		browser.CSS("button[aria-label='Send invitation']"),
		browser.WithText("div[role='dialog'] button.artdeco-button--primary", `^\s*Send\s*$`),
	}
)

// RodProfile is the ProfileView of a live browser page
type RodProfile struct {
	page    *browser.Page
	timeout time.Duration
}

// NewRodProfile creates a ProfileView on page. timeout bounds each control lookup.
func NewRodProfile(page *browser.Page, timeout time.Duration) *RodProfile {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RodProfile{page: page, timeout: timeout}
}

func (p *RodProfile) Open(ctx context.Context, profileURL string) error {
	if err := p.page.Navigate(ctx, profileURL); err != nil {
		return err
	}
	// Let the top card settle before looking for actions
	return stealth.Pause(ctx, 2*time.Second, 4*time.Second)
}

// ConnectControl returns the direct Connect button, or the Connect entry of the More
// menu when the profile tucks it away there
func (p *RodProfile) ConnectControl(ctx context.Context) (Control, error) {
	if el, err := p.page.Find(ctx, p.timeout, connectSelectors...); err == nil {
		return &rodControl{page: p.page, el: el}, nil
	}

	more, err := p.page.Find(ctx, p.timeout/2, moreSelectors...)
	if err != nil {
		return nil, err
	}
	if err := p.page.Click(ctx, more); err != nil {
		return nil, fmt.Errorf("failed to click More button: %w", err)
	}
	if err := stealth.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return nil, err
	}

	el, err := p.page.Find(ctx, p.timeout, menuConnectSelectors...)
	if err != nil {
		return nil, err
	}
	return &rodControl{page: p.page, el: el}, nil
}

func (p *RodProfile) AddNoteControl(ctx context.Context) (Control, error) {
	el, err := p.page.Find(ctx, p.timeout, addNoteSelectors...)
	if err != nil {
		return nil, err
	}
	return &rodControl{page: p.page, el: el}, nil
}

func (p *RodProfile) NoteInput(ctx context.Context) (TextInput, error) {
	el, err := p.page.Find(ctx, p.timeout, noteInputSelectors...)
	if err != nil {
		return nil, err
	}
	return &rodInput{page: p.page, el: el}, nil
}

func (p *RodProfile) SendControl(ctx context.Context) (Control, error) {
	el, err := p.page.Find(ctx, p.timeout, sendSelectors...)
	if err != nil {
		return nil, err
	}
	return &rodControl{page: p.page, el: el}, nil
}

type rodControl struct {
	page *browser.Page
	el   *rod.Element
}

// Label is the visible text, or the trailing word of the aria-label for icon buttons
func (c *rodControl) Label(ctx context.Context) (string, error) {
	text, err := c.el.Context(ctx).Text()
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}

	aria, err := c.el.Context(ctx).Attribute("aria-label")
	if err != nil || aria == nil {
		return "", err
	}
	// "Invite Jane Doe to connect"
	fields := strings.Fields(*aria)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[len(fields)-1], nil
}

func (c *rodControl) Click(ctx context.Context) error {
	if err := stealth.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return err
	}
	return c.page.Click(ctx, c.el)
}

type rodInput struct {
	page *browser.Page
	el   *rod.Element
}

func (i *rodInput) Clear(ctx context.Context) error {
	if err := i.page.Click(ctx, i.el); err != nil {
		return err
	}
	return i.page.Clear(ctx, i.el)
}

func (i *rodInput) Type(ctx context.Context, text string) error {
	return i.page.Type(ctx, i.el, text)
}
