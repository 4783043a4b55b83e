package policy

import (
	"strings"
	"time"

	"github.com/stickynet/sticky-net/internal/intel"
)

// Mode is the engagement intensity level of a conversation.
type Mode string

const (
	ModeMonitoring Mode = "MONITORING"
	ModeCautious   Mode = "CAUTIOUS"
	ModeAggressive Mode = "AGGRESSIVE"
	ModeComplete   Mode = "COMPLETE"
)

// rank orders modes for the unidirectional transition rule.
func (m Mode) rank() int {
	switch m {
	case ModeMonitoring:
		return 0
	case ModeCautious:
		return 1
	case ModeAggressive:
		return 2
	case ModeComplete:
		return 3
	}
	return -1
}

// Terminal reports whether the mode accepts no further turns.
func (m Mode) Terminal() bool { return m == ModeComplete }

// Exit reasons, recorded once when a conversation completes.
const (
	ExitTurnLimit    = "turn limit reached"
	ExitDuration     = "duration limit reached"
	ExitIntelligence = "intelligence complete"
	ExitSuspicious   = "counterpart suspicious"
	ExitStale        = "no new intelligence"
)

// Exit condition keys used in the configurable priority order.
const (
	CondTurns      = "turns"
	CondDuration   = "duration"
	CondComplete   = "complete"
	CondSuspicious = "suspicious"
	CondStale      = "stale"
)

// DefaultExitPriority is the order exit conditions are checked in when the
// configuration does not override it.
var DefaultExitPriority = []string{CondTurns, CondDuration, CondComplete, CondSuspicious, CondStale}

// Config carries the thresholds and limits one aggressiveness profile runs
// with. The same state machine serves any profile.
type Config struct {
	CautiousThreshold   float64
	AggressiveThreshold float64
	MaxTurns            int
	MaxDuration         time.Duration
	StaleTurnLimit      int
	// ExitPriority is the order exit conditions are evaluated in; first match
	// wins. Unknown keys are ignored.
	ExitPriority []string
	// RequiredKinds are entity kinds needed for "intelligence complete" in
	// addition to the built-in payment-plus-contact minimum.
	RequiredKinds []intel.Kind
}

// Policy is the engagement state machine: it decides mode escalation and when
// a conversation must end.
type Policy struct {
	cfg Config
}

// New creates a policy. An empty exit priority falls back to the default
// order.
func New(cfg Config) *Policy {
	if len(cfg.ExitPriority) == 0 {
		cfg.ExitPriority = DefaultExitPriority
	}
	return &Policy{cfg: cfg}
}

// Escalate returns the mode after applying the current confidence. Modes only
// move forward: an established mode is never lowered by a weaker verdict.
func (p *Policy) Escalate(current Mode, confidence float64) Mode {
	if current.Terminal() {
		return current
	}
	next := current
	switch {
	case confidence >= p.cfg.AggressiveThreshold:
		next = ModeAggressive
	case confidence >= p.cfg.CautiousThreshold:
		next = ModeCautious
	}
	if next.rank() < current.rank() {
		return current
	}
	return next
}

// ExitInput is the per-turn evidence the exit conditions look at.
type ExitInput struct {
	Turn                int
	Elapsed             time.Duration
	Intel               *intel.Intelligence
	InboundText         string
	TurnsSinceNewEntity int
}

// EvaluateExit checks the exit conditions in configured priority order and
// returns the first matching condition's label. ok is false when the
// conversation should continue.
func (p *Policy) EvaluateExit(in ExitInput) (reason string, ok bool) {
	for _, cond := range p.cfg.ExitPriority {
		switch cond {
		case CondTurns:
			if p.cfg.MaxTurns > 0 && in.Turn >= p.cfg.MaxTurns {
				return ExitTurnLimit, true
			}
		case CondDuration:
			if p.cfg.MaxDuration > 0 && in.Elapsed >= p.cfg.MaxDuration {
				return ExitDuration, true
			}
		case CondComplete:
			if p.IntelligenceComplete(in.Intel) {
				return ExitIntelligence, true
			}
		case CondSuspicious:
			if CounterpartSuspicious(in.InboundText) {
				return ExitSuspicious, true
			}
		case CondStale:
			if p.cfg.StaleTurnLimit > 0 && in.TurnsSinceNewEntity >= p.cfg.StaleTurnLimit {
				return ExitStale, true
			}
		}
	}
	return "", false
}

// IntelligenceComplete reports whether the captured intelligence satisfies
// the high-value set: a payment identifier, a contact identifier, and every
// configured extra kind.
func (p *Policy) IntelligenceComplete(in *intel.Intelligence) bool {
	if in == nil {
		return false
	}
	if !in.HasPaymentIdentifier() || !in.HasContactIdentifier() {
		return false
	}
	for _, kind := range p.cfg.RequiredKinds {
		if !in.Has(kind) {
			return false
		}
	}
	return true
}

// distrustPhrases are the counterpart's tells that the persona has been made.
var distrustPhrases = []string{
	"you are a bot",
	"are you a bot",
	"you're a bot",
	"this is a scam",
	"you are a scam",
	"is this a scam",
	"you are fake",
	"this is fake",
	"fraud",
	"call the police",
	"calling the police",
	"go to the police",
	"report to police",
	"cyber crime",
	"cybercrime",
	"report you",
	"reporting you",
	"wasting my time",
	"waste my time",
	"not a real person",
	"stop messaging",
}

// CounterpartSuspicious reports whether the inbound text shows explicit
// distrust of the persona.
func CounterpartSuspicious(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range distrustPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
