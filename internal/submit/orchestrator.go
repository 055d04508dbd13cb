package submit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transforma/internal/config"
	"transforma/internal/dupcache"
	"transforma/internal/fileutil"
	"transforma/internal/logging"
	"transforma/internal/relay"
	"transforma/internal/session"
)

// Button labels shown to the user.
const (
	labelChecking         = "Checking..."
	labelReady            = "Submit to FIRS"
	labelSubmitting       = "Submitting..."
	labelSuccess          = "Submitted!"
	labelAlreadySubmitted = "Already Submitted"
	labelError            = "Submit Failed"
	labelSignIn           = "Sign In Required"
	labelRelayOffline     = "Relay Offline"
)

// DuplicateCache answers duplicate checks and records confirmed submissions.
type DuplicateCache interface {
	Check(filename string) dupcache.CheckResult
	AddEntry(filename, firsReference, submittedBy string) error
}

// Transport performs the relay upload and liveness probe.
type Transport interface {
	SubmitInvoice(ctx context.Context, path, userEmail, sessionToken string) relay.SubmitOutcome
	IsRelayAvailable(ctx context.Context) bool
}

// Orchestrator owns the submit button state machine for one open document.
// All transitions replace the state snapshot atomically under mu; a
// generation counter invalidates revert timers that outlive the state
// they were scheduled against.
type Orchestrator struct {
	cache     DuplicateCache
	sessions  session.Provider
	transport Transport
	clock     Clock
	logger    *slog.Logger
	notifier  *notifier

	successRevert time.Duration
	errorRevert   time.Duration

	mu          sync.Mutex
	state       ButtonState
	generation  uint64
	revertTimer Timer
	docPath     string

	wg sync.WaitGroup
}

// Option customises Orchestrator construction.
type Option func(*Orchestrator)

// WithClock overrides the real clock (used in tests).
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// NewOrchestrator wires the submission flow. cfg supplies the timed revert
// durations.
func NewOrchestrator(cfg *config.Config, cache DuplicateCache, sessions session.Provider, transport Transport, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cache:         cache,
		sessions:      sessions,
		transport:     transport,
		clock:         realClock{},
		logger:        logger.With(logging.String(logging.FieldComponent, "submit")),
		notifier:      newNotifier(),
		successRevert: time.Duration(cfg.Submission.SuccessRevertSeconds) * time.Second,
		errorRevert:   time.Duration(cfg.Submission.ErrorRevertSeconds) * time.Second,
		state: ButtonState{
			Phase:  PhaseChecking,
			Label:  labelChecking,
			Detail: "Verifying session and connection",
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current button snapshot.
func (o *Orchestrator) State() ButtonState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// States exposes the notification channel. Each receive yields the newest
// snapshot; intermediate states may be coalesced away.
func (o *Orchestrator) States() <-chan ButtonState {
	return o.notifier.states()
}

// OnDocumentOpened binds the orchestrator to a document and computes the
// initial button state: duplicate record first, then session, then relay
// liveness.
func (o *Orchestrator) OnDocumentOpened(ctx context.Context, path string) ButtonState {
	o.mu.Lock()
	o.docPath = path
	o.mu.Unlock()
	return o.RefreshButtonState(ctx)
}

// RefreshButtonState re-evaluates the resting state for the bound document.
// A duplicate record wins over everything else: the user should see that
// the document was already submitted even when signed out.
func (o *Orchestrator) RefreshButtonState(ctx context.Context) ButtonState {
	o.mu.Lock()
	path := o.docPath
	o.mu.Unlock()

	filename := fileutil.BaseName(path)
	check := o.cache.Check(filename)
	if check.Status == dupcache.StatusAlreadySubmitted {
		return o.setState(ButtonState{
			Phase:  PhaseAlreadySubmitted,
			Label:  labelAlreadySubmitted,
			Detail: duplicateDetail(check),
		})
	}

	sess := o.sessions.Load()
	if !sess.Valid {
		return o.setState(ButtonState{
			Phase:  PhaseNoSession,
			Label:  labelSignIn,
			Detail: sess.Error,
		})
	}

	if !o.transport.IsRelayAvailable(ctx) {
		return o.setState(ButtonState{
			Phase:  PhaseRelayUnavailable,
			Label:  labelRelayOffline,
			Detail: "Failed to reach relay (is it running?)",
		})
	}

	detail := ""
	if check.Status == dupcache.StatusUnavailable {
		detail = "Duplicate protection unavailable"
	}
	return o.setState(ButtonState{Phase: PhaseReady, Label: labelReady, Detail: detail})
}

// OnSubmitClicked runs one submission attempt in the background. Clicks
// while not in a submittable phase are ignored. The Submitting state is
// installed inside the gate's critical section, so a second click can
// never slip through before the first submission's goroutine runs.
func (o *Orchestrator) OnSubmitClicked(ctx context.Context) {
	o.mu.Lock()
	if o.state.Phase != PhaseReady && o.state.Phase != PhaseError {
		o.mu.Unlock()
		return
	}
	if o.revertTimer != nil {
		o.revertTimer.Stop()
		o.revertTimer = nil
	}
	o.generation++
	o.state = ButtonState{Phase: PhaseSubmitting, Label: labelSubmitting}
	o.notifier.publish(o.state)
	path := o.docPath
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.submit(ctx, path)
	}()
}

func (o *Orchestrator) submit(ctx context.Context, path string) {
	sess := o.sessions.Load()
	if !sess.Valid {
		o.setState(ButtonState{Phase: PhaseNoSession, Label: labelSignIn, Detail: sess.Error})
		return
	}

	filename := fileutil.BaseName(path)
	check := o.cache.Check(filename)
	if check.Status == dupcache.StatusAlreadySubmitted {
		o.setState(ButtonState{
			Phase:  PhaseAlreadySubmitted,
			Label:  labelAlreadySubmitted,
			Detail: duplicateDetail(check),
		})
		return
	}

	outcome := o.transport.SubmitInvoice(ctx, path, sess.Username, sess.Token)
	if !outcome.Success {
		o.logger.Warn("submission failed",
			logging.String("filename", filename),
			logging.String("reason", outcome.Error),
			logging.Int("http_status", outcome.HTTPStatus))
		gen := o.setStateNextGen(ButtonState{Phase: PhaseError, Label: labelError, Detail: outcome.Error})
		o.scheduleRevert(gen, o.errorRevert, ButtonState{
			Phase:  PhaseReady,
			Label:  labelReady,
			Detail: "Click to retry submission",
		})
		return
	}

	detail := fmt.Sprintf("FIRS Reference: %s", outcome.FIRSReference)
	if err := o.cache.AddEntry(filename, outcome.FIRSReference, sess.Username); err != nil {
		// The relay accepted the document; only local duplicate
		// protection is degraded.
		o.logger.Error("failed to record submission locally",
			logging.String("filename", filename),
			logging.String("firs_reference", outcome.FIRSReference),
			logging.Error(err))
		detail += " (not recorded locally; duplicate protection is degraded for this file)"
	}

	o.logger.Info("submission confirmed",
		logging.String("filename", filename),
		logging.String("firs_reference", outcome.FIRSReference),
		logging.String("submitted_by", sess.Username))

	gen := o.setStateNextGen(ButtonState{Phase: PhaseSuccess, Label: labelSuccess, Detail: detail})
	o.scheduleRevert(gen, o.successRevert, ButtonState{
		Phase:  PhaseAlreadySubmitted,
		Label:  labelAlreadySubmitted,
		Detail: fmt.Sprintf("Submitted by %s (Ref: %s)", sess.Username, outcome.FIRSReference),
	})
}

// Close waits for any in-flight submission and cancels pending reverts.
func (o *Orchestrator) Close() {
	o.wg.Wait()
	o.mu.Lock()
	if o.revertTimer != nil {
		o.revertTimer.Stop()
		o.revertTimer = nil
	}
	o.generation++
	o.mu.Unlock()
}

// setState replaces the snapshot and bumps the generation, cancelling any
// pending revert scheduled against the previous state.
func (o *Orchestrator) setState(next ButtonState) ButtonState {
	o.setStateNextGen(next)
	return next
}

func (o *Orchestrator) setStateNextGen(next ButtonState) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.revertTimer != nil {
		o.revertTimer.Stop()
		o.revertTimer = nil
	}
	o.generation++
	gen := o.generation
	o.state = next
	// Published under mu so the channel's pending snapshot can never be
	// older than a state a concurrent transition already installed.
	// publish never blocks.
	o.notifier.publish(next)
	return gen
}

// scheduleRevert arms a timed transition to next. The revert fires only if
// the generation it was armed against is still current; any intervening
// transition makes it a no-op.
func (o *Orchestrator) scheduleRevert(gen uint64, after time.Duration, next ButtonState) {
	timer := o.clock.AfterFunc(after, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.generation != gen {
			return
		}
		o.generation++
		o.revertTimer = nil
		o.state = next
		o.notifier.publish(next)
	})

	o.mu.Lock()
	if o.generation == gen {
		o.revertTimer = timer
	} else {
		timer.Stop()
	}
	o.mu.Unlock()
}

func duplicateDetail(check dupcache.CheckResult) string {
	if check.SubmittedBy == "" && check.FIRSReference == "" {
		return "This document was already submitted"
	}
	return fmt.Sprintf("Submitted by %s (Ref: %s)", check.SubmittedBy, check.FIRSReference)
}
