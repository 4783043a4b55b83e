package report

import (
	"time"

	"github.com/stickynet/sticky-net/internal/intel"
)

// FinalReport is the record handed to the reporting pipeline when a
// conversation completes. Delivery is fire-and-forget: a failed publish never
// rolls back the conversation's state transition.
type FinalReport struct {
	ConversationID    string              `json:"conversationId"`
	IsThreat          bool                `json:"isThreat"`
	ThreatType        string              `json:"threatType,omitempty"`
	Confidence        float64             `json:"confidence"`
	TurnCount         int                 `json:"turnCount"`
	DurationSeconds   int                 `json:"durationSeconds"`
	ExtractedEntities *intel.Intelligence `json:"extractedEntities"`
	ExitReason        string              `json:"exitReason"`
	ReportedAt        time.Time           `json:"reportedAt"`
}
