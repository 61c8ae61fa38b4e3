package browser

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

// Options configures the browser launch
type Options struct {
	Headless bool
	// ProfileDir is reused across runs so the authenticated session survives restarts
	ProfileDir  string
	PageTimeout time.Duration
	Typist      stealth.Typist
}

// Session owns the launched browser and its single working page for the whole run
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *Page
	log      *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Chrome with the persisted profile directory and opens a stealth page
func Launch(opts Options, log *zap.SugaredLogger) (*Session, error) {
	log = logger.OrNop(log)

	if opts.ProfileDir != "" {
		if err := os.MkdirAll(opts.ProfileDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create browser profile directory: %w", err)
		}
	}

	// Prefer a local Chrome installation over a downloaded one
	var l *launcher.Launcher
	if path, exists := launcher.LookPath(); exists {
		log.Infow("Using system Chrome browser", "path", path)
		l = launcher.New().Bin(path)
	} else {
		log.Infow("System Chrome not found, using downloaded browser")
		l = launcher.New()
	}

	userAgent := stealth.RandomizeUserAgent()
	l = l.Headless(opts.Headless).
		Devtools(false).
		Leakless(false).
		Set("disable-notifications").
		Set("user-agent", userAgent)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{browser: b, launcher: l, log: log}

	rp, err := stealth.NewPage(b)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.page = NewPage(rp, opts.PageTimeout, opts.Typist)

	log.Infow("Browser launched successfully",
		"headless", opts.Headless,
		"profile_dir", opts.ProfileDir,
		"user_agent", userAgent,
	)
	return s, nil
}

// Page returns the session's working page
func (s *Session) Page() *Page {
	return s.page
}

// Close releases the page, the browser and the browser process. It is safe to call
// more than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		log := logger.OrNop(s.log)
		log.Infow("Closing browser...")

		if s.page != nil && s.page.rod != nil {
			s.closeErr = multierr.Append(s.closeErr, s.page.rod.Close())
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.closeErr = multierr.Append(s.closeErr, fmt.Errorf("failed to close browser: %w", err))
				if s.launcher != nil {
					s.launcher.Kill()
				}
			}
		}
		if s.closeErr != nil {
			log.Warnw("Browser closed with errors", "error", s.closeErr)
		}
	})
	return s.closeErr
}
