// Package resolver provides an MCP server exposing a config resolver as
// tools. The resolve and validate tools are dispatched through the resolver's
// event bus triggers, so a prefix shared with other hosts names both the
// tools and the triggers.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	cfgresolver "github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Tool names. A prefix given to NewServer is joined with "_".
const (
	ToolResolve         = "resolve"
	ToolResolveFile     = "resolve_file"
	ToolValidatePre     = "validate_pre"
	ToolValidatePost    = "validate_post"
	ToolGetResolverData = "get_resolver_data"
)

// Options configures NewServer.
type Options struct {
	// Prefix is prepended to every tool name and used as the event prepend
	// of the triggers the tools call.
	Prefix  string
	Version string
	// Bus receives the resolver triggers. A private bus is used when nil.
	Bus *event.Bus
}

// NewServer registers r's triggers on the bus and creates an MCP server with
// the resolver tools. It fails when the trigger names are already bound.
func NewServer(r *cfgresolver.Resolver, opts Options) (*server.MCPServer, error) {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if _, err := cfgresolver.Register(opts.Bus, r, cfgresolver.RegisterOptions{EventPrepend: opts.Prefix}); err != nil {
		return nil, fmt.Errorf("register triggers: %w", err)
	}

	s := server.NewMCPServer(
		"config-resolver",
		opts.Version,
		server.WithToolCapabilities(true),
	)
	h := &handlers{r: r, bus: opts.Bus, prefix: opts.Prefix}

	s.AddTool(mcp.NewTool(ToolName(opts.Prefix, ToolResolve),
		mcp.WithDescription("Resolves the extends chain of a configuration and returns the merged result as JSON"),
		mcp.WithString("config",
			mcp.Required(),
			mcp.Description("Configuration object as a JSON string"),
		),
	), h.resolve)

	s.AddTool(mcp.NewTool(ToolName(opts.Prefix, ToolResolveFile),
		mcp.WithDescription("Loads a configuration file, resolves its extends chain and returns the result with its chain and files"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the configuration file"),
		),
	), h.resolveFile)

	s.AddTool(mcp.NewTool(ToolName(opts.Prefix, ToolValidatePre),
		mcp.WithDescription("Validates a configuration against the pre-validation rules"),
		mcp.WithString("config", mcp.Required(), mcp.Description("Configuration object as a JSON string")),
		mcp.WithString("name", mcp.Description("Name used for the configuration in error messages")),
	), h.validate(false))

	s.AddTool(mcp.NewTool(ToolName(opts.Prefix, ToolValidatePost),
		mcp.WithDescription("Validates a configuration against the post-validation rules"),
		mcp.WithString("config", mcp.Required(), mcp.Description("Configuration object as a JSON string")),
		mcp.WithString("name", mcp.Description("Name used for the configuration in error messages")),
	), h.validate(true))

	s.AddTool(mcp.NewTool(ToolName(opts.Prefix, ToolGetResolverData),
		mcp.WithDescription("Returns the default values, validation rules and upgrade-merge keys of the resolver"),
	), h.resolverData)

	return s, nil
}

// ToolName joins prefix and name. Characters not allowed in tool names
// (such as the ':' of an event prefix) become '_'.
func ToolName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	prefix = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, prefix)
	return prefix + "_" + name
}

type handlers struct {
	r      *cfgresolver.Resolver
	bus    *event.Bus
	prefix string
}

func (h *handlers) trigger(ctx context.Context, name string, payload any) (any, error) {
	return h.bus.Trigger(ctx, cfgresolver.TriggerName(h.prefix, name), payload)
}

func (h *handlers) resolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, errResult := configArg(request)
	if errResult != nil {
		return errResult, nil
	}
	out, err := h.trigger(ctx, cfgresolver.TriggerResolve, cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

// fileResult is the resolve_file payload.
type fileResult struct {
	ID     string        `json:"id"`
	Chain  []string      `json:"chain"`
	Files  []string      `json:"files"`
	Config *types.Object `json:"config"`
}

func (h *handlers) resolveFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := request.GetArguments()["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("path argument is required"), nil
	}
	res, err := h.r.RunFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fileResult{ID: res.ID, Chain: res.Chain, Files: res.Files, Config: res.Config})
}

func (h *handlers) validate(post bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg, errResult := configArg(request)
		if errResult != nil {
			return errResult, nil
		}
		name, _ := request.GetArguments()["name"].(string)

		trigger := cfgresolver.TriggerPreValidate
		if post {
			trigger = cfgresolver.TriggerPostValidate
		}
		if _, err := h.trigger(ctx, trigger, cfgresolver.ValidateRequest{Config: cfg, Name: name}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("valid"), nil
	}
}

// resolverData is the get_resolver_data payload.
type resolverData struct {
	DefaultValues    *types.Object `json:"defaultValues"`
	PreValidate      any           `json:"preValidate"`
	PostValidate     any           `json:"postValidate"`
	UpgradeMergeList []string      `json:"upgradeMergeList"`
}

func (h *handlers) resolverData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := h.r.GetResolverData()
	defaults := d.DefaultValues
	if defaults == nil {
		defaults = types.NewObject()
	}
	upgrade := d.UpgradeMergeList
	if upgrade == nil {
		upgrade = []string{}
	}
	return jsonResult(resolverData{
		DefaultValues:    defaults,
		PreValidate:      d.PreValidate,
		PostValidate:     d.PostValidate,
		UpgradeMergeList: upgrade,
	})
}

// configArg parses the "config" argument. It is usually a JSON string;
// clients that send an object directly are accepted too.
func configArg(request mcp.CallToolRequest) (*types.Object, *mcp.CallToolResult) {
	raw, ok := request.GetArguments()["config"]
	if !ok {
		return nil, mcp.NewToolResultError("config argument is required")
	}
	switch v := raw.(type) {
	case string:
		cfg, err := types.ParseJSON([]byte(v))
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid config: %v", err))
		}
		return cfg, nil
	case map[string]any:
		return types.FromMap(v), nil
	default:
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid config: expected JSON object, got %T", raw))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
