package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/retriever"
)

// searchRequest is the body of POST /api/{collection}/search. Type is the
// error, pattern or plan type depending on the collection.
type searchRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
	Type     string `json:"type"`
	Action   string `json:"action"`
	Module   string `json:"module"`
}

// storeRequest is the body of POST /api/{collection}. Only the fields of
// the target collection are read.
type storeRequest struct {
	ErrorMessage string   `json:"error_message"`
	FixApplied   string   `json:"fix_applied"`
	ErrorType    string   `json:"error_type"`
	TestFile     string   `json:"test_file"`
	SuccessRate  *float64 `json:"success_rate"`

	Description string `json:"description"`
	Code        string `json:"code"`
	PatternType string `json:"pattern_type"`
	Language    string `json:"language"`

	Scenario string `json:"scenario"`
	Steps    string `json:"steps"`
	PlanType string `json:"plan_type"`

	Action    string `json:"action"`
	Module    string `json:"module"`
	Narrative string `json:"narrative"`
}

func (s *Server) registerKnowledgeRoutes(r chi.Router) {
	r.Get("/api/stats", s.handleStats)
	r.Post("/api/{collection}/search", s.handleSearch)
	r.Post("/api/{collection}", s.handleStore)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.retriever.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make(map[string]int, len(stats))
	for c, n := range stats {
		out[string(c)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	c, err := knowledge.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ctx := r.Context()
	var res *retriever.Result
	switch c {
	case knowledge.CollectionFixes:
		res, err = s.retriever.SearchErrorFixesOfType(ctx, req.Query, knowledge.ErrorType(req.Type), req.NResults)
	case knowledge.CollectionPatterns:
		res, err = s.retriever.SearchCodePatterns(ctx, req.Query, knowledge.PatternType(req.Type), req.NResults)
	case knowledge.CollectionPlans:
		res, err = s.retriever.SearchTestPlans(ctx, req.Query, knowledge.PlanType(req.Type), req.NResults)
	case knowledge.CollectionApplication:
		res, err = s.retriever.SearchApplicationKnowledge(ctx, retriever.AppQuery{
			Text:   req.Query,
			Action: knowledge.Action(req.Action),
			Module: req.Module,
		}, req.NResults)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	c, err := knowledge.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ctx := r.Context()
	var id string
	switch c {
	case knowledge.CollectionFixes:
		rate := retriever.DefaultSuccessRate
		if req.SuccessRate != nil {
			rate = *req.SuccessRate
		}
		id, err = s.retriever.StoreSuccessfulFix(ctx, retriever.FixInput{
			ErrorMessage: req.ErrorMessage,
			FixApplied:   req.FixApplied,
			ErrorType:    knowledge.ErrorType(req.ErrorType),
			TestFile:     req.TestFile,
			SuccessRate:  rate,
		})
	case knowledge.CollectionPatterns:
		id, err = s.retriever.StoreCodePattern(ctx, retriever.PatternInput{
			Description: req.Description,
			Code:        req.Code,
			PatternType: knowledge.PatternType(req.PatternType),
			Language:    req.Language,
		})
	case knowledge.CollectionPlans:
		id, err = s.retriever.StoreTestPlan(ctx, retriever.PlanInput{
			Scenario: req.Scenario,
			Steps:    req.Steps,
			PlanType: knowledge.PlanType(req.PlanType),
		})
	case knowledge.CollectionApplication:
		id, err = s.retriever.StoreApplicationKnowledge(ctx, retriever.AppInput{
			Scenario:  req.Scenario,
			Action:    knowledge.Action(req.Action),
			Module:    req.Module,
			Narrative: req.Narrative,
		})
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "collection": string(c)})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retriever.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, retriever.ErrUnavailable):
		s.logger.Warn("knowledge API unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": string(retriever.StatusUnavailable),
			"error":  err.Error(),
		})
	default:
		s.logger.Error("knowledge API error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
