package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stickynet/sticky-net/internal/engine"
	"github.com/stickynet/sticky-net/internal/session"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// TurnProcessor is the engine surface the handler needs.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req engine.Request) (engine.Result, error)
}

// Handler wires HTTP requests to the engine.
type Handler struct {
	engine TurnProcessor
	logger *logging.Logger
}

// NewHandler creates the analyze handler.
func NewHandler(eng TurnProcessor, logger *logging.Logger) *Handler {
	if eng == nil {
		panic("api: engine is required")
	}
	if logger == nil {
		panic("api: logger is required")
	}
	return &Handler{engine: eng, logger: logger.Component("api")}
}

// Analyze handles POST /api/v1/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode analyze request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		http.Error(w, "message.text is required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ProcessTurn(r.Context(), engine.Request{
		ConversationID: req.ConversationID,
		Text:           req.Message.Text,
		History:        toSessionHistory(req.ConversationHistory),
		Metadata:       req.Metadata,
	})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyMessage) {
			http.Error(w, "message.text is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process turn", "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toAnalyzeResponse(result))
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toAnalyzeResponse(result engine.Result) AnalyzeResponse {
	notes := fmt.Sprintf("engagement mode %s", result.Mode)
	if result.EmotionalTone != "" {
		notes += ", persona tone " + result.EmotionalTone
	}
	return AnalyzeResponse{
		Status:       "success",
		ScamDetected: result.ScamDetected,
		ScamType:     result.ScamType,
		Confidence:   result.Confidence,
		EngagementMetrics: EngagementMetrics{
			EngagementDurationSeconds: result.DurationSeconds,
			TotalMessagesExchanged:    result.TurnCount * 2,
		},
		ExtractedIntelligence: result.Entities,
		AgentResponse:         result.Reply,
		AgentNotes:            notes,
		ConversationID:        result.ConversationID,
		ExitReason:            result.ExitReason,
	}
}

// toSessionHistory maps caller-supplied history onto stored message roles.
// Unknown senders are treated as the counterpart.
func toSessionHistory(history []InboundMessage) []session.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]session.Message, 0, len(history))
	for _, msg := range history {
		sender := session.SenderScammer
		switch strings.ToLower(msg.Sender) {
		case "agent", "assistant", "honeypot":
			sender = session.SenderAgent
		}
		out = append(out, session.Message{
			Sender:    sender,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
