package session

import (
	"time"

	"github.com/stickynet/sticky-net/internal/detection"
	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/internal/policy"
)

// Sender roles in the stored conversation history.
const (
	SenderScammer = "scammer"
	SenderAgent   = "agent"
)

// Message is one stored turn of conversation history.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the central mutable record for one conversation. It is mutated
// exactly once per turn, under the store's per-id lock.
type State struct {
	ID                  string                `json:"id"`
	Mode                policy.Mode           `json:"mode"`
	Confidence          float64               `json:"confidence"`
	ThreatType          detection.ThreatType  `json:"threatType,omitempty"`
	Indicators          []string              `json:"indicators,omitempty"`
	TurnCount           int                   `json:"turnCount"`
	StartedAt           time.Time             `json:"startedAt"`
	LastMessageAt       time.Time             `json:"lastMessageAt"`
	Entities            *intel.Intelligence   `json:"entities"`
	TurnsSinceNewEntity int                   `json:"turnsSinceNewEntity"`
	ExitReason          string                `json:"exitReason,omitempty"`
	History             []Message             `json:"history"`
}

// NewState creates the record for a conversation's first turn.
func NewState(id string, now time.Time) *State {
	return &State{
		ID:        id,
		Mode:      policy.ModeMonitoring,
		StartedAt: now,
		Entities:  &intel.Intelligence{},
	}
}

// Verdict reconstructs the prior detection verdict carried by the state, or
// nil on a fresh conversation.
func (s *State) Verdict() *detection.Verdict {
	if s.TurnCount == 0 && s.Confidence == 0 {
		return nil
	}
	return &detection.Verdict{
		IsThreat:   s.ThreatType != "",
		Confidence: s.Confidence,
		ThreatType: s.ThreatType,
		Indicators: s.Indicators,
	}
}

// AppendTurn records one inbound message and the reply sent for it.
func (s *State) AppendTurn(inbound, reply string, at time.Time) {
	s.History = append(s.History,
		Message{Sender: SenderScammer, Text: inbound, Timestamp: at},
		Message{Sender: SenderAgent, Text: reply, Timestamp: at},
	)
	s.LastMessageAt = at
}
