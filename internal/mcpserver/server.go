// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only blockpress tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/blockpress/internal/apperr"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/siteservice"
)

// Server wraps the MCP server with blockpress tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all blockpress tools registered.
func New(svc *siteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"blockpress",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_site_map",
		mcp.WithDescription("List every published page: slug, page id, title and timestamps, in crawl order."),
	), s.getSiteMap)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Read one published page rendered as Markdown, or as JSON with metadata and backlinks."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Canonical slug of the page (see get_site_map)")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through page titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tags of the blog collection with page counts, or the pages carrying one tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to list pages for")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_feed",
		mcp.WithDescription("Return the site's RSS 2.0 feed."),
	), s.getFeed)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages that link to the specified page."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the page to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(SlugRulesURI, "Slug Rules",
			mcp.WithResourceDescription("How page slugs, URLs and timestamps are derived."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSlugRules,
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

type siteMapSummary struct {
	Site       models.SiteConfig          `json:"site"`
	Pages      []models.CanonicalPageData `json:"pages"`
	Duplicates int                        `json:"duplicates"`
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getSiteMap(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sm, err := s.svc.SiteMap(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(siteMapSummary{Site: sm.Site, Pages: sm.Pages(), Duplicates: sm.Duplicates()}), nil
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.GetPage(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "markdown") == "json" {
		return jsonResult(page), nil
	}
	return mcp.NewToolResultText("# " + page.Title + "\n\n" + page.Markdown), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if tag := req.GetString("tag", ""); tag != "" {
		res, err := s.svc.TaggedPages(ctx, tag)
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tag: %s", tag)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res), nil
	}
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) getFeed(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.svc.Feed(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.GetPage(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if len(page.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(page.Backlinks, "\n")), nil
}

func (s *Server) readSlugRules(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SlugRulesURI,
			MIMEType: "text/markdown",
			Text:     SlugRules,
		},
	}, nil
}
