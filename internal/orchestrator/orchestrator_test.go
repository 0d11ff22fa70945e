package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolforge-dev/toolforge/internal/session"
	"github.com/toolforge-dev/toolforge/internal/synth"
	"github.com/toolforge-dev/toolforge/internal/toolmodule"
)

// stubSynth returns a canned result or error, optionally after a delay.
type stubSynth struct {
	res   *synth.Result
	err   error
	delay time.Duration
	calls int
}

func (s *stubSynth) Synthesize(ctx context.Context, _ session.Configuration) (*synth.Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

// failStore rejects every append with a fixed error.
type failStore struct {
	toolmodule.Store
	err error
}

func (f *failStore) Append(context.Context, toolmodule.Fragment) (bool, error) {
	return false, f.err
}

func pythonResult(code string, tools ...string) *synth.Result {
	return &synth.Result{Code: code, ToolNames: tools, Language: synth.LangPython}
}

// newOrchestrator wires an orchestrator around a stub synthesizer and an
// in-memory store, with all three configuration fields already set.
func newOrchestrator(t *testing.T, syn synth.Synthesizer, store toolmodule.Store) *Orchestrator {
	t.Helper()
	if store == nil {
		store = toolmodule.NewMemStore()
	}
	o := New(
		Config{Language: synth.LangPython},
		session.New(),
		syn,
		store,
		nil,
	)
	o.SetOrgName("Acme")
	o.SetBaseURL("https://api.acme.com")
	o.SetSwaggerSpec(`{"openapi":"3.0.0"}`)
	return o
}

func TestWriteCode_WithoutHandle(t *testing.T) {
	o := newOrchestrator(t, &stubSynth{}, nil)

	_, err := o.WriteCode(context.Background(), "def ping(): pass")
	require.ErrorIs(t, err, ErrMissingHandle)
}

func TestSynthesize_WithoutHandle(t *testing.T) {
	o := newOrchestrator(t, &stubSynth{}, nil)

	_, err := o.Synthesize(context.Background())
	require.ErrorIs(t, err, ErrMissingHandle)
}

func TestValidateState_IncompleteBlocks(t *testing.T) {
	o := New(Config{Language: synth.LangPython}, session.New(), &stubSynth{}, toolmodule.NewMemStore(), nil)
	o.SetOrgName("Acme")

	ok, missing := o.ValidateState()
	assert.False(t, ok)
	assert.Equal(t, []string{"base_url", "swagger_spec"}, missing)
	assert.Equal(t, StateBlocked, o.State())
	assert.Contains(t, o.BlockedCause(), "base_url")
}

func TestCreateAgent_IncompleteConfig(t *testing.T) {
	o := New(Config{Language: synth.LangPython}, session.New(), &stubSynth{}, toolmodule.NewMemStore(), nil)

	h, err := o.CreateAgent()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, h)
	assert.Equal(t, StateBlocked, o.State())
	assert.Contains(t, err.Error(), "org_name")
}

func TestFullCycle(t *testing.T) {
	ctx := context.Background()
	store := toolmodule.NewMemStore()
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user")}
	o := newOrchestrator(t, syn, store)

	ok, missing := o.ValidateState()
	require.True(t, ok)
	assert.Empty(t, missing)
	assert.Equal(t, StateValidating, o.State())

	h, err := o.CreateAgent()
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.NotEmpty(t, h.ID())
	assert.Equal(t, StateSynthesizing, o.State())

	frag, err := o.Synthesize(ctx)
	require.NoError(t, err)
	require.NotNil(t, frag)
	assert.Equal(t, []string{"get_user"}, frag.Tools)
	assert.Equal(t, StateReady, o.State())

	manifest, err := store.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_user"}, manifest)
}

func TestCreateAgent_IdempotentWhenReady(t *testing.T) {
	ctx := context.Background()
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user")}
	o := newOrchestrator(t, syn, nil)

	h1, err := o.CreateAgent()
	require.NoError(t, err)
	_, err = o.Synthesize(ctx)
	require.NoError(t, err)

	// Unchanged configuration: same handle, state stays ready, and the
	// synthesizer is not invoked again.
	h2, err := o.CreateAgent()
	require.NoError(t, err)
	assert.Equal(t, h1.ID(), h2.ID())
	assert.Equal(t, StateReady, o.State())

	frag, err := o.Synthesize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, syn.calls, "an up-to-date module must not trigger a second run")
	require.NotNil(t, frag)
	assert.Equal(t, []string{"get_user"}, frag.Tools)
	assert.Equal(t, StateReady, o.State())
}

func TestConfigChange_RewindsToCollecting(t *testing.T) {
	ctx := context.Background()
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user")}
	o := newOrchestrator(t, syn, nil)

	h1, err := o.CreateAgent()
	require.NoError(t, err)
	_, err = o.Synthesize(ctx)
	require.NoError(t, err)

	o.SetOrgName("Other")
	assert.Equal(t, StateCollecting, o.State())

	h2, err := o.CreateAgent()
	require.NoError(t, err)
	assert.NotEqual(t, h1.ID(), h2.ID(), "changed configuration must issue a fresh handle")
	assert.Equal(t, StateSynthesizing, o.State())
}

func TestSetterDuringSynthesizing_LeavesStateAlone(t *testing.T) {
	o := newOrchestrator(t, &stubSynth{}, nil)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	o.SetOrgName("Other")
	assert.Equal(t, StateSynthesizing, o.State())
}

func TestSynthesize_FailureBlocks(t *testing.T) {
	syn := &stubSynth{err: &synth.SynthesisError{Cause: "swagger spec defines no operations"}}
	o := newOrchestrator(t, syn, nil)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.Synthesize(context.Background())
	var synthErr *synth.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, StateBlocked, o.State())
	assert.Contains(t, o.BlockedCause(), "no operations")
}

func TestSynthesize_PlainErrorWrapped(t *testing.T) {
	cause := errors.New("upstream unreachable")
	o := newOrchestrator(t, &stubSynth{err: cause}, nil)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.Synthesize(context.Background())
	var synthErr *synth.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateBlocked, o.State())
}

func TestSynthesize_TimeoutBlocks(t *testing.T) {
	syn := &stubSynth{
		res:   pythonResult("def get_user():\n    pass\n", "get_user"),
		delay: 200 * time.Millisecond,
	}
	o := New(
		Config{Language: synth.LangPython, SynthTimeout: 10 * time.Millisecond},
		session.New(), syn, toolmodule.NewMemStore(), nil,
	)
	o.SetOrgName("Acme")
	o.SetBaseURL("https://api.acme.com")
	o.SetSwaggerSpec(`{"openapi":"3.0.0"}`)

	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.Synthesize(context.Background())
	var synthErr *synth.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateBlocked, o.State())
}

func TestSynthesize_PersistenceFailureStaysSynthesizing(t *testing.T) {
	storeErr := errors.New("disk full")
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user")}
	o := newOrchestrator(t, syn, &failStore{err: storeErr})
	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.Synthesize(context.Background())
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, StateSynthesizing, o.State(), "persistence failure must not change state")

	var synthErr *synth.SynthesisError
	assert.False(t, errors.As(err, &synthErr), "store errors are propagated unmodified")
}

func TestSynthesize_ManifestMismatchBlocks(t *testing.T) {
	// The stub claims a tool its code does not define.
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user", "list_users")}
	o := newOrchestrator(t, syn, nil)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.Synthesize(context.Background())
	var synthErr *synth.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Contains(t, synthErr.Cause, "list_users")
	assert.Equal(t, StateBlocked, o.State())
}

func TestWriteCode_RecoversManifestFromCode(t *testing.T) {
	ctx := context.Background()
	store := toolmodule.NewMemStore()
	o := newOrchestrator(t, &stubSynth{}, store)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	frag, err := o.WriteCode(ctx, "def get_user():\n    pass\n\ndef list_users():\n    pass\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_user", "list_users"}, frag.Tools)
	assert.Equal(t, StateReady, o.State())

	manifest, err := store.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_user", "list_users"}, manifest)
}

func TestWriteCode_RejectsEmptyCode(t *testing.T) {
	o := newOrchestrator(t, &stubSynth{}, nil)
	_, err := o.CreateAgent()
	require.NoError(t, err)

	_, err = o.WriteCode(context.Background(), "# nothing here\n")
	var synthErr *synth.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Contains(t, synthErr.Cause, "no functions")
}

func TestReporter_EmitsTransitions(t *testing.T) {
	reporter := NewReporter()
	syn := &stubSynth{res: pythonResult("def get_user():\n    pass\n", "get_user")}
	o := New(Config{Language: synth.LangPython}, session.New(), syn, toolmodule.NewMemStore(), reporter)
	o.SetOrgName("Acme")
	o.SetBaseURL("https://api.acme.com")
	o.SetSwaggerSpec(`{"openapi":"3.0.0"}`)

	_, err := o.CreateAgent()
	require.NoError(t, err)
	_, err = o.Synthesize(context.Background())
	require.NoError(t, err)
	reporter.Close()

	var events []Event
	for ev := range reporter.Subscribe() {
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, StateSynthesizing, events[0].To)
	assert.Equal(t, StateReady, events[1].To)
}

func TestReporter_SafeAfterClose(t *testing.T) {
	reporter := NewReporter()
	reporter.Close()

	assert.NotPanics(t, func() {
		reporter.Emit(Event{From: StateCollecting, To: StateValidating})
	})
	assert.NotPanics(t, func() {
		reporter.Close()
	})

	_, open := <-reporter.Subscribe()
	assert.False(t, open, "events emitted after close are dropped")
}
