package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve_corpus tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question to find evidence for in the expert corpus"`
}

// RetrieveOutput is the output schema for the retrieve_corpus tool.
type RetrieveOutput struct {
	Found           bool             `json:"found"`
	Message         string           `json:"message,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Items           []EvidenceOutput `json:"items"`
	Degraded        bool             `json:"degraded,omitempty"`
	DegradedReasons []string         `json:"degraded_reasons,omitempty"`
}

// EvidenceOutput is one cited chunk.
type EvidenceOutput struct {
	Content     string   `json:"content"`
	Score       float64  `json:"score"`
	FileID      string   `json:"file_id"`
	SourcePath  string   `json:"source_path"`
	HeadingPath []string `json:"heading_path"`
	ChunkIndex  int      `json:"chunk_index"`
	URI         string   `json:"uri"`
	ImageRefs   []string `json:"image_refs,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "retrieve_corpus",
		Description: "Retrieve cited evidence from the expert document corpus. " +
			"When found is false, answer with the returned message instead of guessing.",
	}, s.handleRetrieve)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	result, err := s.ports.Retriever.Retrieve(ctx, input.Query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Found:           result.Found,
		Reason:          result.Reason,
		Items:           make([]EvidenceOutput, len(result.Items)),
		Degraded:        result.Degraded,
		DegradedReasons: result.DegradedReasons,
	}
	if !result.Found {
		output.Message = domain.NoEvidenceMessage
	}

	for i := range result.Items {
		item := &result.Items[i]
		output.Items[i] = EvidenceOutput{
			Content:     item.Content,
			Score:       item.FinalScore,
			FileID:      item.Citation.DocumentID,
			SourcePath:  item.Citation.SourcePath,
			HeadingPath: item.Citation.HeadingPath,
			ChunkIndex:  item.Citation.ChunkIndex,
			URI:         fileURI(item.Citation.DocumentID),
			ImageRefs:   item.ImageRefs,
		}
	}

	return nil, output, nil
}
