// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz content tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/contentservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/transfer"
)

const (
	formatURI    = "ansuz://content-format"
	defaultLimit = 20
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *contentservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *contentservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Search snippets and solutions. Exactly one selection mode is used: "+
			"keywords, tags, groups, digest, uuid or data, in that order of precedence."),
		mcp.WithString("keywords", mcp.Description("Space or comma separated keywords matched against all fields")),
		mcp.WithString("tags", mcp.Description("Keywords matched against tags only")),
		mcp.WithString("groups", mcp.Description("Keywords matched against groups only")),
		mcp.WithString("digest", mcp.Description("Digest prefix")),
		mcp.WithString("uuid", mcp.Description("Exact UUID")),
		mcp.WithString("data", mcp.Description("Prefix of the content data")),
		mcp.WithString("category", mcp.Description("snippet, solution or all (default)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("get_content",
		mcp.WithDescription("Read one content item by digest prefix."),
		mcp.WithString("digest", mcp.Required(), mcp.Description("Digest or unique digest prefix")),
	), s.getContent)

	s.mcp.AddTool(mcp.NewTool("create_content",
		mcp.WithDescription("Store one or more content items. The document MUST follow the "+
			"Ansuz content format; read it first via get_content_format or the "+
			formatURI+" resource."),
		mcp.WithString("document", mcp.Required(), mcp.Description("YAML or JSON document: one dictionary, a list, or {data: [...]}")),
	), s.createContent)

	s.mcp.AddTool(mcp.NewTool("delete_content",
		mcp.WithDescription("Delete one content item by digest prefix."),
		mcp.WithString("digest", mcp.Required(), mcp.Description("Digest or unique digest prefix")),
	), s.deleteContent)

	s.mcp.AddTool(mcp.NewTool("get_content_format",
		mcp.WithDescription("Returns the Ansuz content format. "+
			"Call this before creating content to ensure correct structure."),
	), s.getContentFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Content Format",
			mcp.WithResourceDescription("Dictionary format of snippets and solutions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type searchResult struct {
	Total int              `json:"total"`
	Data  []map[string]any `json:"data"`
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := models.ParseCategories(req.GetString("category", ""))
	if err != nil {
		return failure(err), nil
	}
	q := query.Request{
		Categories:    cats,
		AllKeywords:   query.SplitKeywords(req.GetString("keywords", "")),
		TagKeywords:   query.SplitKeywords(req.GetString("tags", "")),
		GroupKeywords: query.SplitKeywords(req.GetString("groups", "")),
		DigestPrefix:  strings.TrimSpace(req.GetString("digest", "")),
		UUID:          strings.TrimSpace(req.GetString("uuid", "")),
		DataPrefix:    req.GetString("data", ""),
		Limit:         req.GetInt("limit", defaultLimit),
	}
	col, err := s.svc.Search(ctx, q)
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(searchResult{Total: col.Total(), Data: col.Maps()})
}

func (s *Server) getContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	digest, err := req.RequireString("digest")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, digest)
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(rec.ToMap())
}

func (s *Server) createContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// JSON is valid YAML, so one decoder serves both.
	recs, err := transfer.Decode(transfer.YAML, []byte(doc))
	if err != nil {
		return failure(err), nil
	}
	res, err := s.svc.CreateMany(ctx, recs)
	if res.Stored == 0 {
		return failure(err), nil
	}
	digests := make([]string, len(res.Records))
	for i, r := range res.Records {
		digests[i] = r.Digest
	}
	text := fmt.Sprintf("created %d of %d: %s", res.Stored, res.Total, strings.Join(digests, ", "))
	if res.Cause != nil {
		text += "\nskipped: " + strings.Join(apperr.Causes(res.Cause), "; ")
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) deleteContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	digest, err := req.RequireString("digest")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Delete(ctx, digest)
	if err != nil {
		return failure(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", rec.Digest)), nil
}

func (s *Server) getContentFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormat), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ContentFormat,
		},
	}, nil
}

func failure(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("NOK: " + strings.Join(apperr.Causes(err), "; "))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
