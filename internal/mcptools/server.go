package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewOrchestrationServer creates an MCP server with all 7 orchestration
// tools registered.
func NewOrchestrationServer(svc *OrchestratorService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "toolforge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_org_name",
		Description: "Store the organization name the generated API tools are built for. May be called in any order with the other setters, and repeatedly; the last value wins.",
	}, svc.SetOrgName)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_base_url",
		Description: "Store the base URL of the API the generated tools will call.",
	}, svc.SetBaseURL)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_swagger_spec",
		Description: "Store the OpenAPI or Swagger document describing the target API. Accepts OpenAPI 3 and Swagger 2.0 JSON.",
	}, svc.SetSwaggerSpec)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_state",
		Description: "Check whether all required configuration values (org name, base URL, swagger spec) are present. Reports the missing fields without changing any stored value.",
	}, svc.ValidateState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_agent",
		Description: "Validate the configuration, issue an agent handle, and synthesize one tool function per API operation into the tool module. Re-running with an unchanged configuration is a no-op.",
	}, svc.CreateAgent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "write_code_to_tool",
		Description: "Append externally produced tool source code to the module. The manifest is recovered from the code itself, so stored tools always match stored functions. Requires a prior create_agent.",
	}, svc.WriteCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_module",
		Description: "Return the rendered tool module text and the manifest of every tool it defines, in append order.",
	}, svc.GetModule)

	return server
}

// RunMCPServer starts an HTTP server exposing the orchestration MCP tools.
func RunMCPServer(ctx context.Context, svc *OrchestratorService, addr string) error {
	server := NewOrchestrationServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// the context is cancelled or the client disconnects.
func RunMCPServerStdio(ctx context.Context, svc *OrchestratorService) error {
	server := NewOrchestrationServer(svc)
	return server.Run(ctx, &mcp.StdioTransport{})
}
