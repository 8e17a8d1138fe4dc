package api

import (
	"github.com/starford/blockpress/internal/siteservice"
)

// PageDetail is the full page response type (aliased from the domain layer).
type PageDetail = siteservice.PageDetail

// PageListItem is a lightweight item in a list response (aliased from the domain layer).
type PageListItem = siteservice.PageListItem

// PageListResponse wraps paginated page listings.
type PageListResponse struct {
	Pages []PageListItem `json:"pages" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// PathsResponse lists the URL path of every published page.
type PathsResponse struct {
	Paths []string `json:"paths" example:"/home,/hello-world" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Slug    string `json:"slug" example:"hello-world" validate:"required"`
	PageID  string `json:"pageId" example:"067dd719-a912-471e-a9a3-ac10710e7fdf" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// TagsResponse lists the tags of the blog collection.
type TagsResponse struct {
	Tags []siteservice.TagSummary `json:"tags" validate:"required"`
}

// GraphNode is a node in the page graph.
type GraphNode struct {
	ID    string `json:"id" example:"hello-world" validate:"required"`
	Title string `json:"title,omitempty" example:"Hello"`
}

// GraphLink is an edge in the page graph.
type GraphLink struct {
	Source string `json:"source" example:"home" validate:"required"`
	Target string `json:"target" example:"hello-world" validate:"required"`
}

// GraphResponse wraps the page graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// RevalidateResponse is returned after a successful rebuild.
type RevalidateResponse = siteservice.RebuildResult
