package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/search"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const ConnectLabel = "Connect"

var (
	ErrNoConnectControl = errors.New("no connect option available")
	ErrLabelChanged     = errors.New("connect control no longer reads Connect")
	ErrNoAddNote        = errors.New("add note button not found")
	ErrNoNoteInput      = errors.New("note field not found")
	ErrNoSendControl    = errors.New("send button not found")
	ErrDailyLimit       = errors.New("daily connection request limit reached")
	ErrPanic            = errors.New("unexpected failure")
)

// Control is a clickable element on a profile
type Control interface {
	Label(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// TextInput is an editable field on a profile
type TextInput interface {
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
}

// ProfileView locates the controls involved in sending a connection request. Lookups
// wait a bounded time and return an error when the control never appears.
type ProfileView interface {
	Open(ctx context.Context, profileURL string) error
	ConnectControl(ctx context.Context) (Control, error)
	AddNoteControl(ctx context.Context) (Control, error)
	NoteInput(ctx context.Context) (TextInput, error)
	SendControl(ctx context.Context) (Control, error)
}

// Throttle spaces out requests; succeeded is the running success count
type Throttle interface {
	BetweenRequests(ctx context.Context, succeeded int) error
}

// Composer renders the note for one candidate
type Composer interface {
	Compose(template string, candidate search.Candidate) string
}

// Ledger records every attempt and knows how many requests went out today
type Ledger interface {
	RecordRequest(ctx context.Context, req storage.ConnectionRequest) error
	RequestsSentToday(ctx context.Context) (int, error)
}

// DispatchOutcome is the tally of a dispatch run. Succeeded <= Attempted always holds.
type DispatchOutcome struct {
	Attempted int
	Succeeded int
}

// Dispatcher sends connection requests one candidate at a time
type Dispatcher struct {
	view       ProfileView
	composer   Composer
	throttle   Throttle
	template   string
	log        *zap.SugaredLogger
	ledger     Ledger
	runID      string
	dailyLimit int
	dryRun     bool
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLedger records each attempt under runID
func WithLedger(l Ledger, runID string) Option {
	return func(d *Dispatcher) {
		d.ledger = l
		d.runID = runID
	}
}

// WithDailyLimit stops dispatching once limit requests went out today. Needs a ledger.
func WithDailyLimit(limit int) Option {
	return func(d *Dispatcher) { d.dailyLimit = limit }
}

// WithDryRun goes through every step except the final Send click
func WithDryRun(dryRun bool) Option {
	return func(d *Dispatcher) { d.dryRun = dryRun }
}

// NewDispatcher creates a Dispatcher that fills template for every candidate
func NewDispatcher(view ProfileView, composer Composer, throttle Throttle, template string, log *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		view:     view,
		composer: composer,
		throttle: throttle,
		template: template,
		log:      logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch attempts a connection request for each candidate in order until
// maxRequests attempts were made, the daily limit is hit or ctx is done. A failing
// candidate is logged and counted; it never stops the remaining ones.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []search.Candidate, maxRequests int) DispatchOutcome {
	var out DispatchOutcome
	if len(candidates) == 0 || maxRequests <= 0 {
		return out
	}

	sentToday := d.sentToday(ctx)

	for i, candidate := range candidates {
		if out.Attempted >= maxRequests {
			break
		}
		if err := ctx.Err(); err != nil {
			d.log.Warnw("Dispatch cancelled", "attempted", out.Attempted, "error", err)
			break
		}
		if d.dailyLimit > 0 && sentToday >= d.dailyLimit {
			d.log.Warnw(ErrDailyLimit.Error(), "sent_today", sentToday, "limit", d.dailyLimit)
			break
		}

		out.Attempted++
		d.log.Infow("Sending connection request", "attempt", out.Attempted, "name", candidate.Name, "profile_url", candidate.ProfileURL)

		note, clicked, err := d.safeAttempt(ctx, candidate)
		if err != nil {
			d.log.Errorw("Failed to send connection request", "profile_url", candidate.ProfileURL, "error", err)
			d.record(ctx, candidate, note, storage.StatusFailed, err.Error())
		} else {
			out.Succeeded++
			if d.dryRun {
				d.log.Infow("Dry run, connection request not sent", "profile_url", candidate.ProfileURL)
				d.record(ctx, candidate, note, storage.StatusSkipped, "dry run")
			} else {
				sentToday++
				d.log.Infow("Connection request sent successfully", "profile_url", candidate.ProfileURL)
				d.record(ctx, candidate, note, storage.StatusSent, "")
			}
		}

		last := out.Attempted >= maxRequests || i == len(candidates)-1
		if clicked && !last {
			if err := d.throttle.BetweenRequests(ctx, out.Succeeded); err != nil {
				d.log.Warnw("Dispatch cancelled", "attempted", out.Attempted, "error", err)
				break
			}
		}
	}

	return out
}

// safeAttempt runs attempt and turns a panic into a failed attempt. The connect
// click may already have happened, so it is reported as clicked.
func (d *Dispatcher) safeAttempt(ctx context.Context, candidate search.Candidate) (note string, clicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			note, clicked, err = "", true, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return d.attempt(ctx, candidate)
}

// attempt runs the connect sequence for one candidate. clicked reports whether the
// connect control was invoked, i.e. whether the site saw any action.
func (d *Dispatcher) attempt(ctx context.Context, candidate search.Candidate) (note string, clicked bool, err error) {
	if err := d.view.Open(ctx, candidate.ProfileURL); err != nil {
		return "", false, fmt.Errorf("failed to open profile: %w", err)
	}

	connect, err := d.view.ConnectControl(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNoConnectControl, err)
	}

	label, err := connect.Label(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to read connect control: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(label), ConnectLabel) {
		return "", false, fmt.Errorf("%w: got %q", ErrLabelChanged, label)
	}

	if err := connect.Click(ctx); err != nil {
		return "", false, fmt.Errorf("failed to click connect button: %w", err)
	}

	addNote, err := d.view.AddNoteControl(ctx)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrNoAddNote, err)
	}
	if err := addNote.Click(ctx); err != nil {
		return "", true, fmt.Errorf("failed to click add note button: %w", err)
	}

	input, err := d.view.NoteInput(ctx)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrNoNoteInput, err)
	}
	if err := input.Clear(ctx); err != nil {
		return "", true, fmt.Errorf("failed to clear note field: %w", err)
	}

	note = d.composer.Compose(d.template, candidate)
	if err := input.Type(ctx, note); err != nil {
		return note, true, fmt.Errorf("failed to type personalized note: %w", err)
	}

	if d.dryRun {
		return note, true, nil
	}

	send, err := d.view.SendControl(ctx)
	if err != nil {
		return note, true, fmt.Errorf("%w: %v", ErrNoSendControl, err)
	}
	if err := send.Click(ctx); err != nil {
		return note, true, fmt.Errorf("failed to click send button: %w", err)
	}

	return note, true, nil
}

func (d *Dispatcher) sentToday(ctx context.Context) int {
	if d.ledger == nil || d.dailyLimit <= 0 {
		return 0
	}
	n, err := d.ledger.RequestsSentToday(ctx)
	if err != nil {
		d.log.Warnw("Failed to check daily limit", "error", err)
		return 0
	}
	d.log.Infow("Daily limit status", "sent_today", n, "limit", d.dailyLimit)
	return n
}

func (d *Dispatcher) record(ctx context.Context, candidate search.Candidate, note, status, reason string) {
	if d.ledger == nil {
		return
	}
	err := d.ledger.RecordRequest(ctx, storage.ConnectionRequest{
		RunID:      d.runID,
		ProfileURL: candidate.ProfileURL,
		Status:     status,
		Reason:     reason,
		Note:       note,
	})
	if err != nil {
		d.log.Errorw("Failed to record connection request", "profile_url", candidate.ProfileURL, "error", err)
	}
}
