package engagement

import "context"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of the exchange as the models see it: the scammer
// speaks as the user, the honeypot persona as the assistant.
type ChatMessage struct {
	Role    string
	Content string
}

// LLMRequest carries one completion call. System is the persona or
// classification prompt; Model overrides a client's default when set.
type LLMRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

// LLMResponse is the model's reply text.
type LLMResponse struct {
	Text string
}

// LLMClient is a single model variant. The agent and classifier normally talk
// to a Cascade of these rather than one directly.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
