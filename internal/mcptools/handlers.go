package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolforge-dev/toolforge/internal/orchestrator"
	"github.com/toolforge-dev/toolforge/internal/synth"
	"github.com/toolforge-dev/toolforge/internal/toolmodule"
)

// OrchestratorService holds the orchestrator and store used by MCP tool
// handlers.
type OrchestratorService struct {
	orc        *orchestrator.Orchestrator
	store      toolmodule.Store
	catalogDir string // used for persisting the tool catalog to disk
}

// NewOrchestratorService creates an OrchestratorService around orc and store.
func NewOrchestratorService(orc *orchestrator.Orchestrator, store toolmodule.Store) *OrchestratorService {
	return &OrchestratorService{orc: orc, store: store}
}

// SetCatalogDir sets the directory used for catalog persistence.
func (s *OrchestratorService) SetCatalogDir(dir string) {
	s.catalogDir = dir
}

// SetOrgName stores the organization name.
func (s *OrchestratorService) SetOrgName(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetOrgNameInput,
) (*mcp.CallToolResult, SetValueOutput, error) {
	s.orc.SetOrgName(input.OrgName)
	return nil, SetValueOutput{State: s.orc.State().String()}, nil
}

// SetBaseURL stores the API base URL.
func (s *OrchestratorService) SetBaseURL(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetBaseURLInput,
) (*mcp.CallToolResult, SetValueOutput, error) {
	s.orc.SetBaseURL(input.BaseURL)
	return nil, SetValueOutput{State: s.orc.State().String()}, nil
}

// SetSwaggerSpec stores the swagger spec document.
func (s *OrchestratorService) SetSwaggerSpec(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetSwaggerSpecInput,
) (*mcp.CallToolResult, SetValueOutput, error) {
	s.orc.SetSwaggerSpec(input.SwaggerSpec)
	return nil, SetValueOutput{State: s.orc.State().String()}, nil
}

// ValidateState reports whether the configuration is complete. An incomplete
// configuration is a normal outcome, not a tool error.
func (s *OrchestratorService) ValidateState(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ValidateStateInput,
) (*mcp.CallToolResult, ValidateStateOutput, error) {
	valid, missing := s.orc.ValidateState()
	return nil, ValidateStateOutput{
		Valid:   valid,
		Missing: missing,
		State:   s.orc.State().String(),
	}, nil
}

// CreateAgent validates the configuration, issues an agent handle, and runs
// the synthesis cycle to completion. Validation and synthesis failures are
// reported in the output as a blocked state; persistence failures are tool
// errors so the caller can retry.
func (s *OrchestratorService) CreateAgent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CreateAgentInput,
) (*mcp.CallToolResult, CreateAgentOutput, error) {
	handle, err := s.orc.CreateAgent()
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidConfig) {
			_, missing := s.orc.ValidateState()
			return nil, CreateAgentOutput{
				State:   s.orc.State().String(),
				Cause:   s.orc.BlockedCause(),
				Missing: missing,
			}, nil
		}
		return nil, CreateAgentOutput{}, err
	}

	frag, err := s.orc.Synthesize(ctx)
	if err != nil {
		var synthErr *synth.SynthesisError
		if errors.As(err, &synthErr) {
			return nil, CreateAgentOutput{
				HandleID: handle.ID(),
				State:    s.orc.State().String(),
				Cause:    synthErr.Cause,
			}, nil
		}
		return nil, CreateAgentOutput{}, fmt.Errorf("persist module: %w", err)
	}

	if s.catalogDir != "" {
		if err := persistCatalog(ctx, s.store, s.catalogDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to persist catalog: %v\n", err)
		}
	}

	return nil, CreateAgentOutput{
		HandleID:  handle.ID(),
		State:     s.orc.State().String(),
		ToolNames: frag.Tools,
	}, nil
}

// WriteCode appends externally produced tool code to the module. Calling it
// without a prior create_agent is a tool error.
func (s *OrchestratorService) WriteCode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WriteCodeInput,
) (*mcp.CallToolResult, WriteCodeOutput, error) {
	frag, err := s.orc.WriteCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, orchestrator.ErrMissingHandle) {
			return nil, WriteCodeOutput{}, err
		}
		var synthErr *synth.SynthesisError
		if errors.As(err, &synthErr) {
			return nil, WriteCodeOutput{
				State: s.orc.State().String(),
				Cause: synthErr.Cause,
			}, nil
		}
		return nil, WriteCodeOutput{}, fmt.Errorf("persist module: %w", err)
	}

	if s.catalogDir != "" {
		if err := persistCatalog(ctx, s.store, s.catalogDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to persist catalog: %v\n", err)
		}
	}

	return nil, WriteCodeOutput{
		State:     s.orc.State().String(),
		ToolNames: frag.Tools,
		Appended:  true,
	}, nil
}

// GetModule returns the rendered module text and its manifest.
func (s *OrchestratorService) GetModule(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetModuleInput,
) (*mcp.CallToolResult, GetModuleOutput, error) {
	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return nil, GetModuleOutput{}, fmt.Errorf("read manifest: %w", err)
	}
	code, err := s.store.Render(ctx)
	if err != nil {
		return nil, GetModuleOutput{}, fmt.Errorf("render module: %w", err)
	}

	return nil, GetModuleOutput{
		Manifest: manifest,
		Code:     code,
		State:    s.orc.State().String(),
	}, nil
}

// persistCatalog copies the fragment sequence from the active store into a
// file-based KuzuDB at catalogDir. This enables catalog queries without the
// MCP server running.
func persistCatalog(ctx context.Context, src toolmodule.Store, catalogDir string) error {
	// Remove old catalog to avoid stale data.
	dbPath := filepath.Join(catalogDir, "catalog")
	os.RemoveAll(dbPath)

	dst, err := toolmodule.NewKuzuCatalog(dbPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer dst.Close()

	fragments, err := src.Fragments(ctx)
	if err != nil {
		return fmt.Errorf("read fragments: %w", err)
	}
	for _, frag := range fragments {
		if _, err := dst.Append(ctx, frag); err != nil {
			return fmt.Errorf("append fragment %s: %w", frag.ID, err)
		}
	}
	return nil
}
