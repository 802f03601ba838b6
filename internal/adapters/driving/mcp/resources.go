package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

const (
	uriScheme    = "corpus://"
	filesPrefix  = uriScheme + "files/"
	metaSuffix   = "/meta"
	jsonMIMEType = "application/json"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Documents in the serving corpus index",
		MIMEType:    jsonMIMEType,
	}, s.handleFilesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: filesPrefix + "{fileId}",
		Name:        "file-chunks",
		Description: "First page of a document's chunks, in reading order",
		MIMEType:    jsonMIMEType,
	}, s.handleFileChunksResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: filesPrefix + "{fileId}" + metaSuffix,
		Name:        "file-meta",
		Description: "Heading outline of a document with the first chunk under each heading",
		MIMEType:    jsonMIMEType,
	}, s.handleFileMetaResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "glossary",
		Name:        "glossary",
		Description: "Expert term definitions and the glossary files they come from",
		MIMEType:    jsonMIMEType,
	}, s.handleGlossaryResource)
}

func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Viewer == nil {
		return jsonResult(req.Params.URI, []domain.DocumentInfo{})
	}

	files, err := s.ports.Viewer.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return jsonResult(req.Params.URI, files)
}

func (s *Server) handleFileChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	fileID := extractFileID(req.Params.URI)
	if s.ports.Viewer == nil || fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	page, err := s.ports.Viewer.Chunks(ctx, fileID, domain.PageRequest{})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	return jsonResult(req.Params.URI, page)
}

func (s *Server) handleFileMetaResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	fileID := extractMetaFileID(req.Params.URI)
	if s.ports.Viewer == nil || fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	meta, err := s.ports.Viewer.Meta(ctx, fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	return jsonResult(req.Params.URI, meta)
}

func (s *Server) handleGlossaryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type glossaryInfo struct {
		Files   []domain.GlossaryFileInfo `json:"files"`
		Entries []domain.GlossaryEntry    `json:"entries"`
	}

	info := glossaryInfo{
		Files:   []domain.GlossaryFileInfo{},
		Entries: []domain.GlossaryEntry{},
	}
	if s.ports.Glossary != nil {
		if files := s.ports.Glossary.List(); files != nil {
			info.Files = files
		}
		if entries := s.ports.Glossary.Entries(); entries != nil {
			info.Entries = entries
		}
	}
	return jsonResult(req.Params.URI, info)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		}},
	}, nil
}

// fileURI is the resource URI of a document's chunks.
func fileURI(fileID string) string {
	return filesPrefix + fileID
}

// extractFileID extracts the id from corpus://files/{fileId}.
func extractFileID(uri string) string {
	if !strings.HasPrefix(uri, filesPrefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, filesPrefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractMetaFileID extracts the id from corpus://files/{fileId}/meta.
func extractMetaFileID(uri string) string {
	if !strings.HasSuffix(uri, metaSuffix) {
		return ""
	}
	return extractFileID(strings.TrimSuffix(uri, metaSuffix))
}
