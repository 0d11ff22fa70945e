//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolforge-dev/toolforge/internal/demo"
	"github.com/toolforge-dev/toolforge/internal/mcptools"
	"github.com/toolforge-dev/toolforge/internal/orchestrator"
	"github.com/toolforge-dev/toolforge/internal/session"
	"github.com/toolforge-dev/toolforge/internal/synth"
	"github.com/toolforge-dev/toolforge/internal/toolmodule"
)

// newWorkflow wires the full stack around a file store in a temp directory.
func newWorkflow(t *testing.T, lang synth.Language) (*mcptools.OrchestratorService, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := toolmodule.NewFileStore(dir, lang.FileName())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	orc := orchestrator.New(
		orchestrator.Config{Language: lang, SynthTimeout: time.Minute},
		session.New(),
		synth.NewOpenAPISynthesizer(lang),
		store,
		nil,
	)
	return mcptools.NewOrchestratorService(orc, store), dir
}

// TestWorkflow_SynthesizeAgainstDemoAPI runs the full cycle: serve the demo
// payments API, feed its spec through the MCP tool handlers, and check the
// persisted module on disk.
func TestWorkflow_SynthesizeAgainstDemoAPI(t *testing.T) {
	ts := httptest.NewServer(demo.NewServer().Handler())
	defer ts.Close()

	svc, dir := newWorkflow(t, synth.LangPython)
	ctx := context.Background()

	_, _, err := svc.SetOrgName(ctx, nil, mcptools.SetOrgNameInput{OrgName: "Acme"})
	require.NoError(t, err)
	_, _, err = svc.SetBaseURL(ctx, nil, mcptools.SetBaseURLInput{BaseURL: ts.URL})
	require.NoError(t, err)
	_, _, err = svc.SetSwaggerSpec(ctx, nil, mcptools.SetSwaggerSpecInput{SwaggerSpec: demo.SwaggerSpec})
	require.NoError(t, err)

	_, out, err := svc.CreateAgent(ctx, nil, mcptools.CreateAgentInput{})
	require.NoError(t, err)
	require.Equal(t, "ready", out.State, "cause: %s", out.Cause)
	assert.Equal(t, []string{"initiate_payment", "get_payment_status", "send_payout"}, out.ToolNames)

	data, err := os.ReadFile(filepath.Join(dir, "tools.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def get_payment_status(payment_id):")
	assert.Contains(t, string(data), ts.URL+"/payments/{payment_id}/status")
}

// TestWorkflow_IncrementalAppend appends a second synthesis under a changed
// configuration and checks the module grows without rewriting history.
func TestWorkflow_IncrementalAppend(t *testing.T) {
	svc, dir := newWorkflow(t, synth.LangPython)
	ctx := context.Background()

	_, _, err := svc.SetOrgName(ctx, nil, mcptools.SetOrgNameInput{OrgName: "Acme"})
	require.NoError(t, err)
	_, _, err = svc.SetBaseURL(ctx, nil, mcptools.SetBaseURLInput{BaseURL: "https://api.acme.com"})
	require.NoError(t, err)
	_, _, err = svc.SetSwaggerSpec(ctx, nil, mcptools.SetSwaggerSpecInput{SwaggerSpec: demo.SwaggerSpec})
	require.NoError(t, err)

	_, first, err := svc.CreateAgent(ctx, nil, mcptools.CreateAgentInput{})
	require.NoError(t, err)
	require.Equal(t, "ready", first.State)
	before, err := os.ReadFile(filepath.Join(dir, "tools.py"))
	require.NoError(t, err)

	// A second spec with a disjoint operation set appends new tools.
	_, _, err = svc.SetSwaggerSpec(ctx, nil, mcptools.SetSwaggerSpecInput{SwaggerSpec: `{
      "openapi": "3.0.0",
      "info": {"title": "Refunds", "version": "1.0.0"},
      "paths": {
        "/refunds": {
          "post": {
            "operationId": "createRefund",
            "requestBody": {"content": {"application/json": {"schema": {"type": "object"}}}},
            "responses": {"200": {"description": "ok"}}
          }
        }
      }
    }`})
	require.NoError(t, err)

	_, second, err := svc.CreateAgent(ctx, nil, mcptools.CreateAgentInput{})
	require.NoError(t, err)
	require.Equal(t, "ready", second.State)
	assert.NotEqual(t, first.HandleID, second.HandleID)

	after, err := os.ReadFile(filepath.Join(dir, "tools.py"))
	require.NoError(t, err)
	assert.Contains(t, string(after), string(bytes.TrimRight(before, "\n")),
		"earlier module content must be preserved")
	assert.Contains(t, string(after), "def create_refund(")

	_, module, err := svc.GetModule(ctx, nil, mcptools.GetModuleInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"initiate_payment", "get_payment_status", "send_payout", "create_refund"}, module.Manifest)
}

// TestWorkflow_GeneratedToolCallsLiveServer synthesizes Go tools against a
// live demo server and then exercises the same endpoints the generated code
// targets, mirroring what a generated tool performs.
func TestWorkflow_GeneratedToolCallsLiveServer(t *testing.T) {
	server := demo.NewServer()
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	svc, _ := newWorkflow(t, synth.LangGo)
	ctx := context.Background()

	_, _, err := svc.SetOrgName(ctx, nil, mcptools.SetOrgNameInput{OrgName: "Acme"})
	require.NoError(t, err)
	_, _, err = svc.SetBaseURL(ctx, nil, mcptools.SetBaseURLInput{BaseURL: ts.URL})
	require.NoError(t, err)
	_, _, err = svc.SetSwaggerSpec(ctx, nil, mcptools.SetSwaggerSpecInput{SwaggerSpec: demo.SwaggerSpec})
	require.NoError(t, err)

	_, out, err := svc.CreateAgent(ctx, nil, mcptools.CreateAgentInput{})
	require.NoError(t, err)
	require.Equal(t, "ready", out.State)
	assert.Equal(t, []string{"InitiatePayment", "GetPaymentStatus", "SendPayout"}, out.ToolNames)

	// Drive the endpoint pair the generated InitiatePayment and
	// GetPaymentStatus tools wrap.
	body, err := json.Marshal(map[string]any{"amount": 10.0, "currency": "USD"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/payments/initiate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payment demo.Payment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payment))
	resp.Body.Close()

	statusResp, err := http.Get(ts.URL + "/payments/" + payment.ID + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var fetched demo.Payment
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&fetched))
	assert.Equal(t, demo.StatusPending, fetched.Status)
	assert.Nil(t, fetched.ProcessedAt)
}
