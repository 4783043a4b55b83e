package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// EngageRequest carries everything the persona needs for one turn.
type EngageRequest struct {
	ConversationID string
	Text           string
	History        []ChatMessage
	ThreatType     string
	Turn           int
	Captured       []string
	Missing        []string
	Bait           *BaitData
}

// AgentReply is the outcome of one engagement turn.
type AgentReply struct {
	Text          string
	EmotionalTone string
	Intel         *intel.Intelligence
}

// Agent generates in-character replies through the model cascade and parses
// the one-pass JSON output (reply plus candidate intelligence).
type Agent struct {
	llm    LLMClient
	logger *logging.Logger
}

// NewAgent creates the honeypot agent.
func NewAgent(llm LLMClient, logger *logging.Logger) *Agent {
	if llm == nil {
		panic("engagement: llm client is required")
	}
	if logger == nil {
		panic("engagement: logger is required")
	}
	return &Agent{llm: llm, logger: logger.Component("honeypot_agent")}
}

const historyWindow = 10

// Engage produces the persona's reply for one scammer message. Model failures
// are returned to the caller, which degrades to a canned reply; they never
// abort a turn.
func (a *Agent) Engage(ctx context.Context, req EngageRequest) (AgentReply, error) {
	if req.Bait == nil {
		req.Bait = NewBaitData(req.ConversationID)
	}

	system := buildSystemPrompt(req.ThreatType, req.Turn, req.Captured, req.Missing, req.Bait)

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: req.Text})

	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      system,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.8,
	})
	if err != nil {
		return AgentReply{}, fmt.Errorf("engagement: engage turn %d: %w", req.Turn, err)
	}

	reply, ok := parseAgentJSON(resp.Text)
	if !ok {
		// Raw text still makes a usable reply; it just carries no candidates.
		a.logger.Warn("agent response was not valid JSON, using raw text",
			"conversation_id", req.ConversationID,
			"turn", req.Turn,
		)
		return AgentReply{Text: resp.Text, Intel: &intel.Intelligence{}}, nil
	}

	a.logger.Info("agent reply generated",
		"conversation_id", req.ConversationID,
		"turn", req.Turn,
		"emotional_tone", reply.EmotionalTone,
		"candidates", reply.Intel.Count(),
	)
	return reply, nil
}

type agentJSONResponse struct {
	ReplyText     string             `json:"reply_text"`
	EmotionalTone string             `json:"emotional_tone"`
	Intelligence  intel.Intelligence `json:"extracted_intelligence"`
}

func parseAgentJSON(text string) (AgentReply, bool) {
	cleaned := StripCodeFences(text)
	var parsed agentJSONResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return AgentReply{}, false
	}
	if strings.TrimSpace(parsed.ReplyText) == "" {
		return AgentReply{}, false
	}
	captured := parsed.Intelligence
	return AgentReply{
		Text:          parsed.ReplyText,
		EmotionalTone: parsed.EmotionalTone,
		Intel:         &captured,
	}, true
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, from model output.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
