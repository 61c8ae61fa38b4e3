package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/logger"
)

const (
	FeedURL  = "https://www.linkedin.com/feed/"
	LoginURL = "https://www.linkedin.com/login"

	DefaultProbeTimeout = 5 * time.Second
	DefaultLoginTimeout = 15 * time.Second
)

// ChallengeType represents the type of security challenge detected
type ChallengeType string

const (
	ChallengeNone    ChallengeType = "none"
	Challenge2FA     ChallengeType = "2fa"
	ChallengeCAPTCHA ChallengeType = "captcha"
	ChallengeVerify  ChallengeType = "verification"
)

// LoginPage is the browser surface the authenticator drives
type LoginPage interface {
	Open(ctx context.Context, url string) error
	// WaitLandmark waits up to timeout for the element only shown to signed-in users
	WaitLandmark(ctx context.Context, timeout time.Duration) error
	FillCredentials(ctx context.Context, email, password string) error
	Submit(ctx context.Context) error
	// Challenge reports a security challenge shown instead of the feed
	Challenge(ctx context.Context) ChallengeType
}

// Authenticator establishes a signed-in session, reusing an existing one when possible
type Authenticator struct {
	page         LoginPage
	log          *zap.SugaredLogger
	probeTimeout time.Duration
	loginTimeout time.Duration
}

// NewAuthenticator creates an Authenticator. Non-positive timeouts fall back to the defaults.
func NewAuthenticator(page LoginPage, probeTimeout, loginTimeout time.Duration, log *zap.SugaredLogger) *Authenticator {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if loginTimeout <= 0 {
		loginTimeout = DefaultLoginTimeout
	}
	return &Authenticator{
		page:         page,
		log:          logger.OrNop(log),
		probeTimeout: probeTimeout,
		loginTimeout: loginTimeout,
	}
}

// Login reports whether the browser ends up signed in. It never returns an error;
// every failure is logged and yields false.
func (a *Authenticator) Login(ctx context.Context, email, password string) bool {
	a.log.Infow("Starting LinkedIn login", "email", email)

	if a.hasSession(ctx) {
		a.log.Info("Session is valid, skipping login")
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	a.log.Info("No active session, proceeding with fresh login")

	if err := a.page.Open(ctx, LoginURL); err != nil {
		a.log.Errorw("Failed to open login page", "error", err)
		return false
	}
	if err := a.page.FillCredentials(ctx, email, password); err != nil {
		a.log.Errorw("Failed to fill credentials", "error", err)
		return false
	}
	if err := a.page.Submit(ctx); err != nil {
		a.log.Errorw("Failed to submit login form", "error", err)
		return false
	}

	if err := a.page.WaitLandmark(ctx, a.loginTimeout); err != nil {
		if challenge := a.page.Challenge(ctx); challenge != ChallengeNone {
			a.log.Errorw("Security challenge detected - manual intervention required", "challenge", string(challenge))
		} else {
			a.log.Errorw("Login verification failed", "timeout", a.loginTimeout, "error", err)
		}
		return false
	}

	a.log.Info("Login successful")
	return true
}

func (a *Authenticator) hasSession(ctx context.Context) bool {
	if err := a.page.Open(ctx, FeedURL); err != nil {
		a.log.Warnw("Failed to open feed", "error", err)
		return false
	}
	if err := a.page.WaitLandmark(ctx, a.probeTimeout); err != nil {
		a.log.Debugw("No signed-in landmark on feed", "error", err)
		return false
	}
	return true
}
