// Package orchestrator drives the configure, validate, synthesize, persist
// lifecycle. It owns the state machine, issues agent handles, and mediates
// between the configuration session, the synthesizer, and the tool module
// store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolforge-dev/toolforge/internal/session"
	"github.com/toolforge-dev/toolforge/internal/synth"
	"github.com/toolforge-dev/toolforge/internal/toolmodule"
)

// State is the orchestrator lifecycle state.
type State int

const (
	// StateCollecting gathers configuration values.
	StateCollecting State = iota
	// StateValidating has a complete configuration awaiting agent creation.
	StateValidating
	// StateSynthesizing has an issued handle and synthesis in flight.
	StateSynthesizing
	// StateReady has a persisted tool module for the current configuration.
	StateReady
	// StateBlocked records a validation or synthesis failure. Any setter
	// returns the machine to StateCollecting.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateValidating:
		return "validating"
	case StateSynthesizing:
		return "synthesizing"
	case StateReady:
		return "ready"
	case StateBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrMissingHandle is returned by operations that require an agent
	// handle issued by CreateAgent.
	ErrMissingHandle = errors.New("orchestrator: no active agent handle")

	// ErrInvalidConfig is returned by CreateAgent when the configuration
	// is incomplete.
	ErrInvalidConfig = errors.New("orchestrator: configuration incomplete")
)

// Config carries the orchestrator settings.
type Config struct {
	// Language is the target language for synthesized tool code.
	Language synth.Language
	// SynthTimeout bounds a single synthesis run. Zero means no limit.
	SynthTimeout time.Duration
}

// Handle is the capability token issued by CreateAgent. It pins the
// configuration snapshot the agent was created from.
type Handle struct {
	id       string
	cfg      session.Configuration
	issuedAt time.Time
}

// ID returns the unique handle identifier.
func (h *Handle) ID() string { return h.id }

// Config returns the configuration snapshot the handle was issued for.
func (h *Handle) Config() session.Configuration { return h.cfg }

// IssuedAt returns when the handle was created.
func (h *Handle) IssuedAt() time.Time { return h.issuedAt }

// Orchestrator is the lifecycle state machine. All exported methods are safe
// for concurrent use; synthesis itself runs outside the lock so setters and
// queries stay responsive while a run is in flight.
type Orchestrator struct {
	cfg      Config
	sess     *session.Session
	synth    synth.Synthesizer
	store    toolmodule.Store
	reporter *Reporter

	mu           sync.Mutex
	state        State
	handle       *Handle
	doneChecksum string
	blockedCause string
	lastFrag     *toolmodule.Fragment
}

// New creates an Orchestrator in StateCollecting. reporter may be nil when
// no transition events are wanted.
func New(cfg Config, sess *session.Session, syn synth.Synthesizer, store toolmodule.Store, reporter *Reporter) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		sess:     sess,
		synth:    syn,
		store:    store,
		reporter: reporter,
		state:    StateCollecting,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// BlockedCause returns the reason for the last transition into StateBlocked,
// or "" when the machine is not blocked.
func (o *Orchestrator) BlockedCause() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateBlocked {
		return ""
	}
	return o.blockedCause
}

// Handle returns the currently issued agent handle, or nil.
func (o *Orchestrator) Handle() *Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

// Snapshot returns a copy of the current configuration.
func (o *Orchestrator) Snapshot() session.Configuration {
	return o.sess.Snapshot()
}

// ---------- Configuration setters ----------

// SetOrgName stores the organization name. Setters never fail; a previously
// blocked, validated, or ready machine returns to StateCollecting so the new
// value is picked up by the next validation.
func (o *Orchestrator) SetOrgName(v string) {
	o.sess.SetOrgName(v)
	o.noteConfigChange("org_name")
}

// SetBaseURL stores the API base URL.
func (o *Orchestrator) SetBaseURL(v string) {
	o.sess.SetBaseURL(v)
	o.noteConfigChange("base_url")
}

// SetSwaggerSpec stores the swagger spec document.
func (o *Orchestrator) SetSwaggerSpec(v string) {
	o.sess.SetSwaggerSpec(v)
	o.noteConfigChange("swagger_spec")
}

// noteConfigChange rewinds terminal and pre-synthesis states to
// StateCollecting. A run already in StateSynthesizing is left alone; it
// completes against the snapshot pinned in its handle.
func (o *Orchestrator) noteConfigChange(field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateBlocked, StateValidating, StateReady:
		o.transition(StateCollecting, field+" changed")
	}
}

// ---------- Lifecycle operations ----------

// ValidateState checks whether the configuration is complete. It reports the
// missing field names on failure and moves the machine to StateBlocked; on
// success it moves to StateValidating unless an up-to-date module already
// exists, in which case StateReady is preserved.
func (o *Orchestrator) ValidateState() (bool, []string) {
	snap := o.sess.Snapshot()
	missing := snap.Missing()

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(missing) > 0 {
		o.transition(StateBlocked, "missing "+strings.Join(missing, ", "))
		return false, missing
	}

	if o.state == StateReady && snap.Checksum() == o.doneChecksum {
		return true, nil
	}
	if o.state != StateSynthesizing {
		o.transition(StateValidating, "configuration complete")
	}
	return true, nil
}

// CreateAgent validates the configuration and issues an agent handle,
// moving the machine to StateSynthesizing. When a module for the identical
// configuration has already been persisted, the existing handle is returned
// and the machine stays in StateReady. An incomplete configuration yields
// ErrInvalidConfig and StateBlocked.
func (o *Orchestrator) CreateAgent() (*Handle, error) {
	snap := o.sess.Snapshot()
	missing := snap.Missing()

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(missing) > 0 {
		o.transition(StateBlocked, "missing "+strings.Join(missing, ", "))
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if o.state == StateReady && snap.Checksum() == o.doneChecksum && o.handle != nil {
		return o.handle, nil
	}

	o.handle = &Handle{
		id:       uuid.NewString(),
		cfg:      snap,
		issuedAt: time.Now().UTC(),
	}
	o.transition(StateSynthesizing, "agent created")
	return o.handle, nil
}

// Synthesize runs the synthesizer against the handle's pinned configuration
// and persists the result. The orchestrator lock is not held during the run,
// so configuration reads and writes proceed concurrently.
//
// Failure handling: synthesis and verification failures move the machine to
// StateBlocked and return a *synth.SynthesisError; persistence failures keep
// the machine in StateSynthesizing and propagate the store error unmodified
// so the run can be retried.
func (o *Orchestrator) Synthesize(ctx context.Context) (*toolmodule.Fragment, error) {
	o.mu.Lock()
	h := o.handle
	if h == nil {
		o.mu.Unlock()
		return nil, ErrMissingHandle
	}
	// A module for this exact configuration was already persisted; one
	// synthesis cycle per successful validation, so skip the run.
	if o.state == StateReady && h.cfg.Checksum() == o.doneChecksum {
		frag := o.lastFrag
		o.mu.Unlock()
		return frag, nil
	}
	o.mu.Unlock()

	if o.cfg.SynthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.SynthTimeout)
		defer cancel()
	}

	res, err := o.synth.Synthesize(ctx, h.cfg)
	if err != nil {
		return nil, o.blockOnSynthFailure(err)
	}
	if err := synth.VerifyManifest(res); err != nil {
		return nil, o.blockOnSynthFailure(err)
	}

	frag := toolmodule.Fragment{
		ID:        uuid.NewString(),
		Checksum:  toolmodule.CodeChecksum(res.Code),
		Code:      res.Code,
		Tools:     res.ToolNames,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	added, err := o.store.Append(ctx, frag)
	if err != nil {
		// Stays in StateSynthesizing: the generated result is fine, only
		// persistence failed, so the caller may retry.
		return nil, err
	}

	o.doneChecksum = h.cfg.Checksum()
	o.lastFrag = &frag
	if added {
		o.transition(StateReady, "module persisted")
	} else {
		o.transition(StateReady, "identical module already persisted")
	}
	return &frag, nil
}

// WriteCode persists externally produced tool code under the active handle.
// The manifest is recovered from the code itself via tree-sitter, so the
// stored manifest always matches the stored functions.
func (o *Orchestrator) WriteCode(ctx context.Context, code string) (*toolmodule.Fragment, error) {
	o.mu.Lock()
	h := o.handle
	o.mu.Unlock()
	if h == nil {
		return nil, ErrMissingHandle
	}

	names, err := synth.ExtractToolNames(code, o.cfg.Language)
	if err != nil {
		return nil, &synth.SynthesisError{Cause: "parse submitted code", Err: err}
	}
	if len(names) == 0 {
		return nil, &synth.SynthesisError{Cause: "submitted code defines no functions"}
	}

	frag := toolmodule.Fragment{
		ID:        uuid.NewString(),
		Checksum:  toolmodule.CodeChecksum(code),
		Code:      code,
		Tools:     names,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.store.Append(ctx, frag); err != nil {
		return nil, err
	}

	o.doneChecksum = h.cfg.Checksum()
	o.lastFrag = &frag
	o.transition(StateReady, "code written")
	return &frag, nil
}

// blockOnSynthFailure records a failed run. Non-synthesis errors, such as a
// context deadline, are wrapped so callers always observe a SynthesisError.
func (o *Orchestrator) blockOnSynthFailure(err error) error {
	var synthErr *synth.SynthesisError
	if !errors.As(err, &synthErr) {
		synthErr = &synth.SynthesisError{Cause: "synthesis failed", Err: err}
		err = synthErr
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.transition(StateBlocked, synthErr.Cause)
	return err
}

// transition switches state and emits an event. Callers hold o.mu.
func (o *Orchestrator) transition(to State, reason string) {
	from := o.state
	o.state = to
	if to == StateBlocked {
		o.blockedCause = reason
	} else {
		o.blockedCause = ""
	}
	if o.reporter != nil && from != to {
		o.reporter.Emit(Event{From: from, To: to, Reason: reason})
	}
}
