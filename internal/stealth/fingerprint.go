package stealth

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Viewport is a window size
type Viewport struct {
	Width  int
	Height int
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1280, 720},
}

// RandomizeUserAgent returns a randomized but realistic user agent
func RandomizeUserAgent() string {
	return userAgents[intn(len(userAgents))]
}

// RandomViewport returns one of a handful of common desktop sizes
func RandomViewport() Viewport {
	return viewports[intn(len(viewports))]
}

// NewPage opens a page with the go-rod/stealth evasions preloaded and a realistic
// viewport applied
func NewPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	vp := RandomViewport()
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  vp.Width,
		Height: vp.Height,
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return page, nil
}
