package in

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	reconcilein "timeblocks/internal/modules/reconcile/port/in"
)

// RegisterMCPTools adds the countdown tools to s.
func RegisterMCPTools(s *server.MCPServer, usecase reconcilein.Usecase) {
	s.AddTool(statusTool(), statusHandler(usecase))
	s.AddTool(setTool(), setHandler(usecase))
}

func statusTool() mcp.Tool {
	return mcp.NewTool("countdown_status",
		mcp.WithDescription("Show the countdown topic, date range, day counts and sync mode."),
	)
}

func statusHandler(usecase reconcilein.Usecase) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := usecase.WaitIdle(ctx); err != nil {
			return toolError(err)
		}
		return stateResult(usecase.State(ctx))
	}
}

func setTool() mcp.Tool {
	return mcp.NewTool("countdown_set",
		mcp.WithDescription("Change the countdown. Only the given fields are updated."),
		mcp.WithString("topic",
			mcp.Description("What the countdown is for"),
		),
		mcp.WithString("start_date",
			mcp.Description("First day, YYYY-MM-DD"),
		),
		mcp.WithString("target_date",
			mcp.Description("Target day, YYYY-MM-DD"),
		),
	)
}

func setHandler(usecase reconcilein.Usecase) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		input := reconciledto.EditInput{
			Topic:      optionalString(args, "topic"),
			StartDate:  optionalString(args, "start_date"),
			TargetDate: optionalString(args, "target_date"),
		}
		if input.Topic == nil && input.StartDate == nil && input.TargetDate == nil {
			return toolError(errors.New("nothing to change: pass topic, start_date or target_date"))
		}
		if _, err := usecase.Edit(ctx, input); err != nil {
			return toolError(err)
		}
		if err := usecase.WaitIdle(ctx); err != nil {
			return toolError(err)
		}
		return stateResult(usecase.State(ctx))
	}
}

func optionalString(args map[string]any, key string) *string {
	raw, ok := args[key]
	if !ok {
		return nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil
	}
	return &value
}

func stateResult(state reconciledto.StateOutput) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encode state: %w", err))
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
