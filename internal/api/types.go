package api

import (
	"time"

	"github.com/stickynet/sticky-net/internal/intel"
)

// InboundMessage is one message in the analyze request.
type InboundMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyzeRequest is the POST /api/v1/analyze payload.
type AnalyzeRequest struct {
	Message             InboundMessage    `json:"message"`
	ConversationHistory []InboundMessage  `json:"conversationHistory,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	ConversationID      string            `json:"conversationId,omitempty"`
}

// EngagementMetrics summarizes how long the honeypot has held the counterpart.
type EngagementMetrics struct {
	EngagementDurationSeconds int `json:"engagementDurationSeconds"`
	TotalMessagesExchanged    int `json:"totalMessagesExchanged"`
}

// AnalyzeResponse is the analyze endpoint's result document.
type AnalyzeResponse struct {
	Status                string              `json:"status"`
	ScamDetected          bool                `json:"scamDetected"`
	ScamType              string              `json:"scamType,omitempty"`
	Confidence            float64             `json:"confidence"`
	EngagementMetrics     EngagementMetrics   `json:"engagementMetrics"`
	ExtractedIntelligence *intel.Intelligence `json:"extractedIntelligence"`
	AgentResponse         string              `json:"agentResponse"`
	AgentNotes            string              `json:"agentNotes,omitempty"`
	ConversationID        string              `json:"conversationId"`
	ExitReason            string              `json:"exitReason,omitempty"`
}
