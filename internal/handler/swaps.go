package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/service"
)

// SwapService is what SwapHandler needs from service.SwapService.
type SwapService interface {
	FindSuggestions(ctx context.Context, userID, mealID string, req service.SuggestRequest) ([]model.SwapSuggestion, error)
	ApplySwap(ctx context.Context, userID, mealID, line, newDescription string) (*model.Meal, error)
	PropagateSwap(ctx context.Context, userID, line, newDescription string, rng model.DateRange) (int, error)
}

type SwapHandler struct {
	swaps  SwapService
	logger *slog.Logger
}

func NewSwapHandler(swaps SwapService, logger *slog.Logger) *SwapHandler {
	return &SwapHandler{swaps: swaps, logger: logger}
}

// goalRequest names the nutrient and direction as text:
// {"nutrient":"fiber","direction":"increase","target":20,"relative":true}
type goalRequest struct {
	Nutrient  string  `json:"nutrient"`
	Direction string  `json:"direction"`
	Target    float64 `json:"target"`
	Relative  bool    `json:"relative"`
}

func (g goalRequest) toGoal(i int) (model.Goal, error) {
	id, ok := nutrient.Lookup(g.Nutrient)
	if !ok {
		return model.Goal{}, apperror.ValidationFailed("goals",
			fmt.Sprintf("goal %d: unknown or ambiguous nutrient %q", i+1, g.Nutrient))
	}
	dir, ok := model.ParseDirection(g.Direction)
	if !ok {
		return model.Goal{}, apperror.ValidationFailed("goals",
			fmt.Sprintf("goal %d: direction must be increase or decrease", i+1))
	}
	return model.Goal{Nutrient: id, Direction: dir, Target: g.Target, Relative: g.Relative}, nil
}

type suggestionsRequest struct {
	Line             string        `json:"line"`
	Goals            []goalRequest `json:"goals"`
	TolerancePercent float64       `json:"tolerancePercent"`
	SameGroupOnly    bool          `json:"sameGroupOnly"`
	StrictTolerance  bool          `json:"strictTolerance"`
}

// HandleSuggestions ranks replacements for one ingredient of a meal.
//
// HTTP: POST /api/meals/{id}/swaps/suggestions
// BODY: {"line":"150g chicken breast","goals":[...],"tolerancePercent":10}
func (h *SwapHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req suggestionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	goals := make([]model.Goal, len(req.Goals))
	for i, g := range req.Goals {
		goal, err := g.toGoal(i)
		if err != nil {
			writeError(w, err)
			return
		}
		goals[i] = goal
	}

	suggestions, err := h.swaps.FindSuggestions(r.Context(), userID, chi.URLParam(r, "id"), service.SuggestRequest{
		Line:             req.Line,
		Goals:            goals,
		TolerancePercent: req.TolerancePercent,
		SameGroupOnly:    req.SameGroupOnly,
		StrictTolerance:  req.StrictTolerance,
	})
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type applySwapRequest struct {
	Line           string `json:"line"`
	NewDescription string `json:"newDescription"`
}

// HandleApply swaps one ingredient and stores the result as a new meal.
//
// HTTP: POST /api/meals/{id}/swaps
// BODY: {"line":"150g chicken breast","newDescription":"Turkey breast"}
func (h *SwapHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req applySwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	meal, err := h.swaps.ApplySwap(r.Context(), userID, chi.URLParam(r, "id"), req.Line, req.NewDescription)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

type propagateRequest struct {
	Line           string `json:"line"`
	NewDescription string `json:"newDescription"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type propagateResponse struct {
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// HandlePropagate applies one swap across the user's meal history.
//
// HTTP: POST /api/swaps/propagate
// BODY: {"line":"150g chicken breast","newDescription":"Turkey breast","from":"2024-03-01","to":"2024-03-31"}
//
// When the batch stops part way, meals already swapped stay swapped. The
// error response then carries the count in an "updated" field as well.
func (h *SwapHandler) HandlePropagate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req propagateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rng, err := dateRange(req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}

	n, err := h.swaps.PropagateSwap(r.Context(), userID, req.Line, req.NewDescription, rng)
	if err != nil {
		logFailure(h.logger, r, err)
		if n > 0 {
			status, _ := classify(err)
			writeJSON(w, status, propagateResponse{Updated: n, Error: publicMessage(err)})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, propagateResponse{Updated: n})
}

// publicMessage returns the AppError message in err, or a generic text.
func publicMessage(err error) string {
	if appErr, ok := asAppError(err); ok {
		return appErr.Message
	}
	return "An internal error occurred"
}
