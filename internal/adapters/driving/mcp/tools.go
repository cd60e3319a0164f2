package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// ExtractInput is the input schema for the extract_variables tool.
type ExtractInput struct {
	DocumentID int64    `json:"document_id" jsonschema:"id of the stored contract document"`
	Variables  []string `json:"variables,omitempty" jsonschema:"variable names to answer (default: the whole catalogue)"`
}

// ExtractOutput is the output schema for the extract_variables tool.
type ExtractOutput struct {
	DocumentID int64             `json:"document_id"`
	Results    map[string]string `json:"results"`
	Missing    []string          `json:"missing,omitempty"`
}

// TagInput is the input schema for the tag_text tool.
type TagInput struct {
	Text string `json:"text" jsonschema:"text to tag with the rule tagger"`
}

// TagOutput is the output schema for the tag_text tool.
type TagOutput struct {
	Tagged string `json:"tagged"`
}

// ListVariablesInput is the (empty) input schema for list_variables.
type ListVariablesInput struct{}

// VariableOutput describes one catalogue entry.
type VariableOutput struct {
	Name             string `json:"name"`
	RetrieveQuestion string `json:"retrieve_question"`
	GenerateQuestion string `json:"generate_question"`
}

// ListVariablesOutput is the output schema for list_variables.
type ListVariablesOutput struct {
	Variables []VariableOutput `json:"variables"`
	Count     int              `json:"count"`
}

// IngestInput is the input schema for the ingest_pdf tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"path of a PDF on the server's filesystem"`
}

// IngestOutput is the output schema for the ingest_pdf tool.
type IngestOutput struct {
	Status            string            `json:"status"`
	DocumentID        int64             `json:"document_id"`
	ProcessingResults map[string]string `json:"processing_results"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_variables",
		Description: "Answer contract catalogue variables for a stored document",
	}, s.handleExtract)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tag_text",
		Description: "Wrap parties, legal terms, dates and other entities in semantic tags",
	}, s.handleTag)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_variables",
		Description: "List the contract variables that can be extracted",
	}, s.handleListVariables)

	if s.ports.Contract != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_pdf",
			Description: "Process a contract PDF, store its chunks and extract all variables",
		}, s.handleIngest)
	}
}

func (s *Server) handleExtract(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractInput,
) (*mcp.CallToolResult, ExtractOutput, error) {
	if input.DocumentID <= 0 {
		return nil, ExtractOutput{}, fmt.Errorf("%w: document_id must be positive", domain.ErrInvalidInput)
	}

	catalogue := s.ports.Extraction.Variables()
	vars := catalogue
	if len(input.Variables) > 0 {
		vars = make([]domain.Variable, 0, len(input.Variables))
		for _, name := range input.Variables {
			v, ok := domain.FindVariable(catalogue, name)
			if !ok {
				return nil, ExtractOutput{}, fmt.Errorf("%w: unknown variable %q", domain.ErrInvalidInput, name)
			}
			vars = append(vars, v)
		}
	}

	results := s.ports.Extraction.ProcessVariables(ctx, vars, input.DocumentID)

	output := ExtractOutput{DocumentID: input.DocumentID, Results: results}
	for _, v := range vars {
		if _, ok := results[v.Name]; !ok {
			output.Missing = append(output.Missing, v.Name)
		}
	}
	sort.Strings(output.Missing)
	return nil, output, nil
}

func (s *Server) handleTag(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input TagInput,
) (*mcp.CallToolResult, TagOutput, error) {
	return nil, TagOutput{Tagged: s.ports.Tagging.Tag(input.Text)}, nil
}

func (s *Server) handleListVariables(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListVariablesInput,
) (*mcp.CallToolResult, ListVariablesOutput, error) {
	vars := s.ports.Extraction.Variables()
	output := ListVariablesOutput{
		Variables: make([]VariableOutput, len(vars)),
		Count:     len(vars),
	}
	for i, v := range vars {
		output.Variables[i] = VariableOutput{
			Name:             v.Name,
			RetrieveQuestion: v.RetrieveQuestion,
			GenerateQuestion: v.GenerateQuestion,
		}
	}
	return nil, output, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Contract == nil {
		return nil, IngestOutput{}, ErrIngestDisabled
	}
	result, err := s.ports.Contract.Ingest(ctx, input.Path)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{
		Status:            result.Status,
		DocumentID:        result.DocumentID,
		ProcessingResults: result.ProcessingResults,
	}, nil
}
