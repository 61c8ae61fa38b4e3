package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

var (
	landmark       = browser.CSS("#global-nav")
	emailField     = browser.CSS("#username")
	passwordField  = browser.CSS("#password")
	submitButton   = browser.CSS("button[type='submit']")
	fieldTimeout   = 10 * time.Second
	twoFASelectors = []string{
		"#input__phone_verification_pin",
		"input[name='pin']",
		"#two-step-challenge",
	}
	captchaSelectors = []string{
		"#captcha-internal",
		"iframe[src*='recaptcha']",
		"iframe[title*='captcha' i]",
	}
)

// RodLogin is the LoginPage of a live browser page
type RodLogin struct {
	page *browser.Page
}

func NewRodLogin(page *browser.Page) *RodLogin {
	return &RodLogin{page: page}
}

func (l *RodLogin) Open(ctx context.Context, url string) error {
	return l.page.Navigate(ctx, url)
}

func (l *RodLogin) WaitLandmark(ctx context.Context, timeout time.Duration) error {
	_, err := l.page.Find(ctx, timeout, landmark)
	return err
}

func (l *RodLogin) FillCredentials(ctx context.Context, email, password string) error {
	if err := stealth.Pause(ctx, time.Second, 3*time.Second); err != nil {
		return err
	}
	if err := l.fill(ctx, emailField, email); err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := stealth.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return err
	}
	if err := l.fill(ctx, passwordField, password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	return nil
}

// fill types without simulated typos so credentials are never mangled
func (l *RodLogin) fill(ctx context.Context, sel browser.Selector, text string) error {
	el, err := l.page.Find(ctx, fieldTimeout, sel)
	if err != nil {
		return err
	}
	if err := l.page.Click(ctx, el); err != nil {
		return err
	}
	if err := l.page.Clear(ctx, el); err != nil {
		return err
	}
	return l.page.TypeExact(ctx, el, text)
}

func (l *RodLogin) Submit(ctx context.Context) error {
	if err := stealth.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}
	el, err := l.page.Find(ctx, fieldTimeout, submitButton)
	if err != nil {
		return fmt.Errorf("sign in button: %w", err)
	}
	return l.page.Click(ctx, el)
}

func (l *RodLogin) Challenge(ctx context.Context) ChallengeType {
	if l.any(ctx, twoFASelectors) {
		return Challenge2FA
	}
	if l.any(ctx, captchaSelectors) {
		return ChallengeCAPTCHA
	}

	info, err := l.page.Rod().Context(ctx).Info()
	if err == nil && strings.Contains(info.URL, "/checkpoint/") {
		return ChallengeVerify
	}
	return ChallengeNone
}

func (l *RodLogin) any(ctx context.Context, selectors []string) bool {
	for _, s := range selectors {
		els, err := l.page.FindAll(ctx, s)
		if err == nil && len(els) > 0 {
			return true
		}
	}
	return false
}
