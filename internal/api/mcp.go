package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yapily/ipisp/internal/prefs"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Prefs   *prefs.Store
	Version string
}

// NewMCPServer creates an MCP server exposing the preferences store as tools
// and a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"ipisp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ipisp: typed application preferences for the ipisp payment app."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_preferences",
			mcp.WithDescription("Return every stored preference with its decoded value."),
		),
		mcpListPreferences(deps),
	)

	s.AddTool(
		mcp.NewTool("set_preference",
			mcp.WithDescription("Store a typed preference value."),
			mcp.WithString("key", mcp.Description("Preference key; the namespace prefix is added when missing"), mcp.Required()),
			mcp.WithString("type", mcp.Description("Value type"), mcp.Required(),
				mcp.Enum("bool", "int", "double", "string", "string_list")),
			mcp.WithString("value", mcp.Description("Value as text; string_list takes a JSON array of strings"), mcp.Required()),
		),
		mcpSetPreference(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_preference",
			mcp.WithDescription("Delete a single preference."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
		),
		mcpRemovePreference(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_preferences",
			mcp.WithDescription("Delete every preference in the application namespace."),
			mcp.WithBoolean("confirm", mcp.Description("Must be true"), mcp.Required()),
		),
		mcpClearPreferences(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"prefs://all",
			"Preferences",
			mcp.WithResourceDescription("All stored preferences as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePreferences(deps),
	)

	return s
}

func mcpListPreferences(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		all, err := deps.Prefs.GetAll()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read preferences: %v", err)), nil
		}
		b, err := json.Marshal(all)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal preferences: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPreference(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		typ, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		raw, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		v, err := ParseValue(typ, raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Prefs.Set(key, v); err != nil {
			if errors.Is(err, prefs.ErrReservedPrefix) {
				return mcpError("this string cannot be stored as it clashes with special identifier prefixes"), nil
			}
			return mcpError(fmt.Sprintf("failed to set preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", key, raw)), nil
	}
}

func mcpRemovePreference(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		if err := deps.Prefs.Remove(key); err != nil {
			return mcpError(fmt.Sprintf("failed to remove preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s", key)), nil
	}
}

func mcpClearPreferences(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !req.GetBool("confirm", false) {
			return mcpError("confirm must be true to clear preferences"), nil
		}
		if err := deps.Prefs.Clear(); err != nil {
			return mcpError(fmt.Sprintf("failed to clear preferences: %v", err)), nil
		}
		return mcpText("Cleared all preferences"), nil
	}
}

func mcpResourcePreferences(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		all, err := deps.Prefs.GetAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read preferences: %w", err)
		}
		b, err := json.Marshal(all)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal preferences: %w", err)
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

// ParseValue converts the textual form of a preference into a typed value.
// Integers of any size are accepted.
func ParseValue(typ, raw string) (prefs.Value, error) {
	switch typ {
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", raw)
		}
		return prefs.Bool(b), nil
	case "int":
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if n.IsInt64() {
			return prefs.Int(n.Int64()), nil
		}
		return prefs.BigInt{Int: n}, nil
	case "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double %q", raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("double must be finite, got %q", raw)
		}
		return prefs.Double(f), nil
	case "string":
		return prefs.String(raw), nil
	case "string_list":
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("string_list must be a JSON array of strings: %v", err)
		}
		return prefs.StringList(list), nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
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
