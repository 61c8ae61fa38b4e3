package messaging

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/search"
)

const (
	// MaxNoteLength is LinkedIn's character limit for connection notes
	MaxNoteLength = 300
	Ellipsis      = "..."

	NamePlaceholder  = "$name"
	TitlePlaceholder = "$title"
)

var errInvalidUTF8 = errors.New("invalid UTF-8")

// Composer fills the connection note template for each candidate
type Composer struct {
	log *zap.SugaredLogger
}

// NewComposer creates a Composer
func NewComposer(log *zap.SugaredLogger) *Composer {
	return &Composer{log: logger.OrNop(log)}
}

// Compose substitutes the candidate's name and title into template and enforces
// MaxNoteLength. On failure it logs and returns template unchanged.
func (c *Composer) Compose(template string, candidate search.Candidate) (note string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("Failed to personalize message", "profile_url", candidate.ProfileURL, "panic", r)
			note = template
		}
	}()

	note, err := Render(template, candidate)
	if err != nil {
		c.log.Errorw("Failed to personalize message", "profile_url", candidate.ProfileURL, "error", err)
		return template
	}
	return note
}

// Render replaces $name and $title in a single pass, normalises to NFC, and
// truncates to MaxNoteLength characters ending in an ellipsis when too long
func Render(template string, candidate search.Candidate) (string, error) {
	for field, v := range map[string]string{"template": template, "name": candidate.Name, "title": candidate.Headline} {
		if !utf8.ValidString(v) {
			return "", fmt.Errorf("%s: %w", field, errInvalidUTF8)
		}
	}

	r := strings.NewReplacer(
		NamePlaceholder, candidate.Name,
		TitlePlaceholder, candidate.Headline,
	)
	note := norm.NFC.String(r.Replace(template))

	return Truncate(note, MaxNoteLength), nil
}

// Truncate shortens s to at most max characters, replacing the tail with Ellipsis
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(Ellipsis)
	if keep < 0 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:keep]) + Ellipsis
}
