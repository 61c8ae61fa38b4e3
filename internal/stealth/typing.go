package stealth

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

// adjacent QWERTY keys used for simulated typos
var typoMap = map[rune][]rune{
	'a': {'s', 'q', 'w', 'z'},
	'b': {'v', 'g', 'h', 'n'},
	'c': {'x', 'd', 'f', 'v'},
	'd': {'s', 'e', 'r', 'f', 'c', 'x'},
	'e': {'w', 'r', 'd', 's'},
	'f': {'d', 'r', 't', 'g', 'v', 'c'},
	'g': {'f', 't', 'y', 'h', 'b', 'v'},
	'h': {'g', 'y', 'u', 'j', 'n', 'b'},
	'i': {'u', 'o', 'k', 'j'},
	'j': {'h', 'u', 'i', 'k', 'm', 'n'},
	'k': {'j', 'i', 'o', 'l', 'm'},
	'l': {'k', 'o', 'p'},
	'm': {'n', 'j', 'k'},
	'n': {'b', 'h', 'j', 'm'},
	'o': {'i', 'p', 'l', 'k'},
	'p': {'o', 'l'},
	'q': {'w', 'a'},
	'r': {'e', 't', 'f', 'd'},
	's': {'a', 'w', 'e', 'd', 'x', 'z'},
	't': {'r', 'y', 'g', 'f'},
	'u': {'y', 'i', 'j', 'h'},
	'v': {'c', 'f', 'g', 'b'},
	'w': {'q', 'e', 's', 'a'},
	'x': {'z', 's', 'd', 'c'},
	'y': {'t', 'u', 'h', 'g'},
	'z': {'a', 's', 'x'},
}

// typoFor returns a neighbouring key for letters and ok=false for anything else
func typoFor(char rune) (rune, bool) {
	typos, ok := typoMap[unicode.ToLower(char)]
	if !ok {
		return char, false
	}
	return typos[intn(len(typos))], true
}

// Typist types text into inputs one keystroke at a time
type Typist struct {
	// Speed is the mean delay between keystrokes
	Speed time.Duration
	// TypoRate is the per-letter probability of a corrected typo
	TypoRate float64
}

// keystrokeDelay is slower for the first few characters, occasionally much longer,
// and varies ±40% around Speed
func (t Typist) keystrokeDelay(position int) time.Duration {
	base := t.Speed
	if base <= 0 {
		base = 150 * time.Millisecond
	}
	if position < 5 {
		base = base * 4 / 3
	}
	if float64n() < 0.1 {
		base = RandomDelay(2*base, 5*base)
	}
	factor := 1.0 + (float64n()*2-1)*0.4
	return time.Duration(float64(base) * factor)
}

// Type enters text into el
func (t Typist) Type(ctx context.Context, el *rod.Element, text string) error {
	el = el.Context(ctx)
	keyboard := el.Page().Keyboard

	for i, char := range []rune(text) {
		if t.TypoRate > 0 && float64n() < t.TypoRate {
			if wrong, ok := typoFor(char); ok {
				if err := el.Input(string(wrong)); err != nil {
					return fmt.Errorf("failed to type: %w", err)
				}
				if err := Pause(ctx, 100*time.Millisecond, 250*time.Millisecond); err != nil {
					return err
				}
				if err := keyboard.Type(input.Backspace); err != nil {
					return fmt.Errorf("failed to correct typo: %w", err)
				}
			}
		}

		if err := el.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}

		if err := Sleep(ctx, t.keystrokeDelay(i)); err != nil {
			return err
		}
	}

	return nil
}

// Clear selects the current contents of el and deletes them
func Clear(ctx context.Context, el *rod.Element) error {
	el = el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select text: %w", err)
	}
	if err := el.Page().Keyboard.Type(input.Backspace); err != nil {
		return fmt.Errorf("failed to clear input: %w", err)
	}
	return nil
}
