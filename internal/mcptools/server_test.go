//go:build cgo

package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports. It returns the connected client session and the underlying
// OrchestratorService so that tests can inspect state when needed.
func setupServerClient(t *testing.T) (*mcp.ClientSession, *OrchestratorService) {
	t.Helper()

	svc := newTestService(t)
	server := NewOrchestrationServer(svc)

	st, ct := mcp.NewInMemoryTransports()

	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session, svc
}

// TestMCPListTools verifies that the MCP server exposes exactly 7 tools with
// the expected names.
func TestMCPListTools(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)

	require.Len(t, result.Tools, 7, "expected 7 registered tools")

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	expected := []string{
		"create_agent",
		"get_module",
		"set_base_url",
		"set_org_name",
		"set_swagger_spec",
		"validate_state",
		"write_code_to_tool",
	}
	assert.Equal(t, expected, names)
}

// TestMCPCreateAgentFlow drives the configure, validate, create cycle over
// the MCP client-server transport and checks the structured output.
func TestMCPCreateAgentFlow(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	for name, args := range map[string]any{
		"set_org_name":     SetOrgNameInput{OrgName: "Acme"},
		"set_base_url":     SetBaseURLInput{BaseURL: "https://api.acme.com"},
		"set_swagger_spec": SetSwaggerSpecInput{SwaggerSpec: petSpec},
	} {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		})
		require.NoError(t, err)
		require.False(t, result.IsError, "%s should not return an error", name)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "create_agent",
		Arguments: CreateAgentInput{},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "create_agent should not return an error")
	require.NotNil(t, result.StructuredContent, "expected structured content from create_agent")

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)

	var output CreateAgentOutput
	err = json.Unmarshal(raw, &output)
	require.NoError(t, err)

	assert.Equal(t, "ready", output.State)
	assert.NotEmpty(t, output.HandleID)
	assert.Equal(t, []string{"list_pets", "get_pet"}, output.ToolNames)
}

// TestMCPWriteCodeWithoutAgent checks that write_code_to_tool surfaces the
// missing handle as a tool error.
func TestMCPWriteCodeWithoutAgent(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "write_code_to_tool",
		Arguments: WriteCodeInput{Code: "def ping(): pass"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError, "calling write_code_to_tool before create_agent is an error")
}
