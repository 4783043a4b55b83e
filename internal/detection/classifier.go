package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stickynet/sticky-net/internal/engagement"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// Classifier is the external scam-classification collaborator. It may fail or
// time out; Fusion recovers with local signals only.
type Classifier interface {
	Classify(ctx context.Context, text string, history []engagement.ChatMessage, prior *Verdict) (Verdict, error)
}

const classifyPrompt = `Classify if this message is a SCAM. Return ONLY valid JSON.

HISTORY:
%s

NEW MESSAGE: "%s"

PREVIOUS ASSESSMENT: %s

SCAM = deception/coercion via: impersonation, false pretenses, threats, credential theft, or phishing.
NOT SCAM = transparent personal requests without deception.

SCAM TYPES: "job_offer" | "banking_fraud" | "lottery_reward" | "impersonation" | "others"

Return ONLY: {"is_scam": bool, "confidence": float, "scam_type": str|null, "threat_indicators": [str], "reasoning": "brief"}`

// LLMClassifier classifies messages through the model cascade.
type LLMClassifier struct {
	llm    engagement.LLMClient
	logger *logging.Logger
}

// NewLLMClassifier creates a classifier backed by the given client, normally
// a cascade of model variants.
func NewLLMClassifier(llm engagement.LLMClient, logger *logging.Logger) *LLMClassifier {
	if llm == nil {
		panic("detection: llm client is required")
	}
	if logger == nil {
		panic("detection: logger is required")
	}
	return &LLMClassifier{llm: llm, logger: logger.Component("classifier")}
}

const classifierHistoryWindow = 5

func (c *LLMClassifier) Classify(ctx context.Context, text string, history []engagement.ChatMessage, prior *Verdict) (Verdict, error) {
	historyText := "No previous messages"
	if len(history) > 0 {
		window := history
		if len(window) > classifierHistoryWindow {
			window = window[len(window)-classifierHistoryWindow:]
		}
		var lines []string
		for _, msg := range window {
			label := "SCAMMER"
			if msg.Role == engagement.ChatRoleAssistant {
				label = "USER"
			}
			lines = append(lines, fmt.Sprintf("[%s]: %s", label, msg.Content))
		}
		historyText = strings.Join(lines, "\n")
	}

	priorText := "None"
	if prior != nil {
		priorText = fmt.Sprintf("is_scam=%t, confidence=%.2f", prior.IsThreat, prior.Confidence)
	}

	prompt := fmt.Sprintf(classifyPrompt, historyText, text, priorText)

	resp, err := c.llm.Complete(ctx, engagement.LLMRequest{
		Messages:    []engagement.ChatMessage{{Role: engagement.ChatRoleUser, Content: prompt}},
		MaxTokens:   1024,
		Temperature: 0.1,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("detection: classify: %w", err)
	}

	verdict, err := parseClassification(resp.Text)
	if err != nil {
		c.logger.Warn("classifier returned unparseable output", "error", err.Error())
		return Verdict{}, err
	}
	return verdict, nil
}

func parseClassification(text string) (Verdict, error) {
	cleaned := engagement.StripCodeFences(text)
	var parsed struct {
		IsScam           bool     `json:"is_scam"`
		Confidence       float64  `json:"confidence"`
		ScamType         *string  `json:"scam_type"`
		ThreatIndicators []string `json:"threat_indicators"`
		Reasoning        string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Verdict{}, fmt.Errorf("detection: parse classification: %w", err)
	}

	verdict := Verdict{
		IsThreat:   parsed.IsScam,
		Confidence: clamp01(parsed.Confidence),
		Indicators: parsed.ThreatIndicators,
		Reasoning:  parsed.Reasoning,
	}
	if parsed.ScamType != nil {
		verdict.ThreatType = ThreatType(*parsed.ScamType)
	}
	return verdict, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
