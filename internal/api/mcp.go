package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/alexcomrie/Garden-Club/internal/catalog"
	"github.com/alexcomrie/Garden-Club/internal/imageurl"
)

// MCPCatalog abstracts the catalog cache for the MCP layer.
type MCPCatalog interface {
	LoadBusinesses(ctx context.Context) ([]catalog.Business, error)
	BusinessByID(ctx context.Context, id string) (catalog.Business, bool, error)
	LoadProducts(ctx context.Context, sheetURL string) (*catalog.ProductGroups, error)
	Refresh(ctx context.Context) ([]catalog.Business, error)
	Token() uint64
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog MCPCatalog
}

// NewMCPServer creates an MCP server exposing the storefront catalog as
// tools and resources, so an assistant can browse businesses and products
// the same way the HTTP API does.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"gardenclub",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("gardenclub catalog: garden shops, their products, and image link resolution."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_businesses",
			mcp.WithDescription("List all visible garden businesses in the catalog."),
		),
		mcpListBusinesses(deps),
	)

	s.AddTool(
		mcp.NewTool("get_business",
			mcp.WithDescription("Fetch one business by its catalog id."),
			mcp.WithString("id", mcp.Description("Business id, e.g. rose_garden"), mcp.Required()),
		),
		mcpGetBusiness(deps),
	)

	s.AddTool(
		mcp.NewTool("list_products",
			mcp.WithDescription("List a business's products grouped by category."),
			mcp.WithString("business_id", mcp.Description("Business id"), mcp.Required()),
		),
		mcpListProducts(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_image_url",
			mcp.WithDescription("Resolve a Google Drive share link to embeddable image URL forms."),
			mcp.WithString("url", mcp.Description("Raw share link from the catalog sheet"), mcp.Required()),
		),
		mcpResolveImageURL(deps),
	)

	s.AddTool(
		mcp.NewTool("refresh_catalog",
			mcp.WithDescription("Force a catalog refetch from the published sheets, bypassing all caches."),
		),
		mcpRefreshCatalog(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"catalog://businesses",
			"Business Roster",
			mcp.WithResourceDescription("All visible businesses as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceBusinesses(deps),
	)

	return s
}

func mcpListBusinesses(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		businesses, err := deps.Catalog.LoadBusinesses(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("loading businesses failed: %v", err)), nil
		}

		b, err := json.Marshal(businesses)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal businesses: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetBusiness(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		business, ok, err := deps.Catalog.BusinessByID(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("loading business failed: %v", err)), nil
		}
		if !ok {
			return mcpError(fmt.Sprintf("business %q not found", id)), nil
		}

		b, err := json.Marshal(business)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal business: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("business_id")
		if err != nil {
			return mcpError("business_id is required"), nil
		}

		business, ok, err := deps.Catalog.BusinessByID(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("loading business failed: %v", err)), nil
		}
		if !ok {
			return mcpError(fmt.Sprintf("business %q not found", id)), nil
		}

		groups, err := deps.Catalog.LoadProducts(ctx, business.ProductSheetURL)
		if err != nil {
			return mcpError(fmt.Sprintf("loading products failed: %v", err)), nil
		}

		b, err := json.Marshal(groups)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal products: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResolveImageURL(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		token := deps.Catalog.Token()
		forms := map[string]any{
			"source":  raw,
			"direct":  imageurl.WithToken(imageurl.Direct(raw), token),
			"proxied": imageurl.WithToken(imageurl.Proxied(raw), token),
			"token":   token,
		}
		if id, ok := imageurl.ExtractFileID(raw); ok {
			forms["fileId"] = id
			forms["thumbnail"] = imageurl.WithToken(
				fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w1000", id), token)
		}

		b, err := json.Marshal(forms)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal forms: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRefreshCatalog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		businesses, err := deps.Catalog.Refresh(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("refresh failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Refreshed catalog: %d businesses, token %d", len(businesses), deps.Catalog.Token())), nil
	}
}

func mcpResourceBusinesses(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		businesses, err := deps.Catalog.LoadBusinesses(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load businesses: %w", err)
		}

		b, err := json.Marshal(businesses)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal businesses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
