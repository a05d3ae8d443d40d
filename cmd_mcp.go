package main

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve departure lookups as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.resolve(); err != nil {
			return err
		}
		source, err := newSource(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		s := server.NewMCPServer("departureboard", Version)
		s.AddTools(mcpTools(newSharedSource(source, cfg.FetchTimeout, cfg.SnapshotTTL))...)
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpTools(source DepartureSource) []server.ServerTool {
	return []server.ServerTool{
		newServerTool(listStationsTool()),
		newServerTool(getDeparturesTool(source)),
	}
}

func newServerTool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	return server.ServerTool{
		Tool:    tool,
		Handler: handler,
	}
}

func listStationsTool() (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"list_stations",
			mcp.WithDescription("List the stations a departure board can be shown for"),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			b, err := json.Marshal(Stations())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(b)), nil
		}
}

func getDeparturesTool(source DepartureSource) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"get_departures",
			mcp.WithDescription("Fetch live departures for a station"),
			mcp.WithString("station", mcp.Required(), mcp.Description("Station name or code")),
			mcp.WithString("filter", mcp.Description("Transport filter: ALL, TRAIN, TUBE or TRAM")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				Station string `mapstructure:"station" validate:"required"`
				Filter  string `mapstructure:"filter" validate:"omitempty,oneof=ALL TRAIN TUBE TRAM all train tube tram"`
			}
			var args ToolArguments
			if err := mapstructure.Decode(req.Params.Arguments, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := validate.StructCtx(ctx, args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			st, err := LookupStation(args.Station)
			if err != nil {
				return mcp.NewToolResultError("Unknown station: " + args.Station), nil
			}
			f, err := parseFilter(args.Filter)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := source.Fetch(ctx, st)
			if err != nil {
				return mcp.NewToolResultError(fetchFailedMessage), nil
			}

			b, err := json.Marshal(buildBoard(st, false, "", data, f))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(b)), nil
		}
}
