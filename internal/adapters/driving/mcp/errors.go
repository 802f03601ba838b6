// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// corpus. It exposes retrieval as a tool and the corpus viewer as resources so
// an agent can answer from cited evidence or refuse.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
