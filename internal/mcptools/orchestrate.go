package mcptools

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// SetOrgNameInput is the input for the set_org_name MCP tool.
type SetOrgNameInput struct {
	OrgName string `json:"orgName" jsonschema:"the organization name the generated tools are built for"`
}

// SetBaseURLInput is the input for the set_base_url MCP tool.
type SetBaseURLInput struct {
	BaseURL string `json:"baseUrl" jsonschema:"the API base URL generated tools call, e.g. https://api.acme.com"`
}

// SetSwaggerSpecInput is the input for the set_swagger_spec MCP tool.
type SetSwaggerSpecInput struct {
	SwaggerSpec string `json:"swaggerSpec" jsonschema:"the OpenAPI or Swagger document describing the API, as a JSON string"`
}

// SetValueOutput is the shared result of the three setter tools.
type SetValueOutput struct {
	State string `json:"state"`
}

// ValidateStateInput is the input for the validate_state MCP tool.
type ValidateStateInput struct{}

// ValidateStateOutput is the result of the validate_state MCP tool.
type ValidateStateOutput struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
	State   string   `json:"state"`
}

// CreateAgentInput is the input for the create_agent MCP tool.
type CreateAgentInput struct{}

// CreateAgentOutput is the result of the create_agent MCP tool. On failure
// State is "blocked" and Cause carries the reason.
type CreateAgentOutput struct {
	HandleID  string   `json:"handleId,omitempty"`
	State     string   `json:"state"`
	Cause     string   `json:"cause,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	ToolNames []string `json:"toolNames,omitempty"`
}

// WriteCodeInput is the input for the write_code_to_tool MCP tool.
type WriteCodeInput struct {
	Code string `json:"code" jsonschema:"tool source code to append to the module"`
}

// WriteCodeOutput is the result of the write_code_to_tool MCP tool.
type WriteCodeOutput struct {
	State     string   `json:"state"`
	Cause     string   `json:"cause,omitempty"`
	ToolNames []string `json:"toolNames,omitempty"`
	Appended  bool     `json:"appended"`
}

// GetModuleInput is the input for the get_module MCP tool.
type GetModuleInput struct{}

// GetModuleOutput is the result of the get_module MCP tool.
type GetModuleOutput struct {
	Manifest []string `json:"manifest"`
	Code     string   `json:"code"`
	State    string   `json:"state"`
}
