// Package mcp provides an MCP (Model Context Protocol) server adapter for askdoc.
// It lets AI assistants ask questions about, and search, uploaded documents.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
