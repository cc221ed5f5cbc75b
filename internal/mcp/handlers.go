package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/retriever"
)

func (s *Server) searchResult(res *retriever.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyText) {
			return mcp.NewToolResultError("query text must not be empty"), nil
		}
		s.logger.Warn("tool search failed", zap.Error(err))
		return mcp.NewToolResultError(retriever.FormatError(err)), nil
	}
	return mcp.NewToolResultText(retriever.Format(res)), nil
}

func (s *Server) storeResult(what string, id string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		s.logger.Warn("tool store failed", zap.String("kind", what), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Could not store %s: %v. The work itself still succeeded, it is just not cached.", what, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored %s in knowledge base (id %s).", what, id)), nil
}

func (s *Server) handleSearchErrorFixes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("error_message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: error_message"), nil
	}
	errorType := knowledge.ErrorType(request.GetString("error_type", ""))
	return s.searchResult(s.retriever.SearchErrorFixesOfType(ctx, text, errorType, request.GetInt("n_results", 0)))
}

func (s *Server) handleStoreSuccessfulFix(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := request.RequireString("error_message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: error_message"), nil
	}
	fix, err := request.RequireString("fix_applied")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: fix_applied"), nil
	}
	id, err := s.retriever.StoreSuccessfulFix(ctx, retriever.FixInput{
		ErrorMessage: msg,
		FixApplied:   fix,
		ErrorType:    knowledge.ErrorType(request.GetString("error_type", "")),
		TestFile:     request.GetString("test_file", ""),
		SuccessRate:  request.GetFloat("success_rate", retriever.DefaultSuccessRate),
	})
	return s.storeResult("fix", id, err)
}

func (s *Server) handleSearchCodePatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	desc, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}
	pt := knowledge.PatternType(request.GetString("pattern_type", ""))
	return s.searchResult(s.retriever.SearchCodePatterns(ctx, desc, pt, request.GetInt("n_results", 0)))
}

func (s *Server) handleStoreCodePattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	desc, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}
	id, err := s.retriever.StoreCodePattern(ctx, retriever.PatternInput{
		Description: desc,
		Code:        request.GetString("code", ""),
		PatternType: knowledge.PatternType(request.GetString("pattern_type", "")),
		Language:    request.GetString("language", ""),
	})
	return s.storeResult("code pattern", id, err)
}

func (s *Server) handleSearchTestPlans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenario, err := request.RequireString("scenario_description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: scenario_description"), nil
	}
	pt := knowledge.PlanType(request.GetString("plan_type", ""))
	return s.searchResult(s.retriever.SearchTestPlans(ctx, scenario, pt, request.GetInt("n_results", 0)))
}

func (s *Server) handleStoreTestPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenario, err := request.RequireString("scenario")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: scenario"), nil
	}
	id, err := s.retriever.StoreTestPlan(ctx, retriever.PlanInput{
		Scenario: scenario,
		Steps:    request.GetString("steps", ""),
		PlanType: knowledge.PlanType(request.GetString("plan_type", "")),
	})
	return s.storeResult("test plan", id, err)
}

func (s *Server) handleSearchApplicationKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenario, err := request.RequireString("scenario_description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: scenario_description"), nil
	}
	return s.searchResult(s.retriever.SearchApplicationKnowledge(ctx, retriever.AppQuery{
		Text:   scenario,
		Action: knowledge.Action(request.GetString("action", "")),
		Module: request.GetString("module", ""),
	}, request.GetInt("n_results", 0)))
}

func (s *Server) handleStoreApplicationKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenario, err := request.RequireString("scenario")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: scenario"), nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: action"), nil
	}
	narrative, err := request.RequireString("narrative")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: narrative"), nil
	}
	id, err := s.retriever.StoreApplicationKnowledge(ctx, retriever.AppInput{
		Scenario:  scenario,
		Action:    knowledge.Action(action),
		Module:    request.GetString("module", ""),
		Narrative: narrative,
	})
	return s.storeResult("application knowledge", id, err)
}

func (s *Server) handleGetRAGStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.retriever.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(retriever.FormatError(err)), nil
	}
	return mcp.NewToolResultText(retriever.FormatStats(stats)), nil
}
