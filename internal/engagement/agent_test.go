package engagement

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickynet/sticky-net/pkg/logging"
)

func TestEngageParsesOnePassJSON(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "```json\n" + `{
			"reply_text": "ok sir but waht is your upi id?",
			"emotional_tone": "confused",
			"extracted_intelligence": {
				"upiIds": ["fraudster@ybl"],
				"phoneNumbers": ["9876543210"]
			}
		}` + "\n```"}, nil
	})
	agent := NewAgent(llm, logging.New("error"))

	reply, err := agent.Engage(context.Background(), EngageRequest{
		ConversationID: "conv-1",
		Text:           "send money to fraudster@ybl",
		Turn:           2,
	})
	require.NoError(t, err)

	assert.Equal(t, "ok sir but waht is your upi id?", reply.Text)
	assert.Equal(t, "confused", reply.EmotionalTone)
	assert.Equal(t, []string{"fraudster@ybl"}, reply.Intel.UPIIDs)
	assert.Equal(t, []string{"9876543210"}, reply.Intel.PhoneNumbers)
}

func TestEngageFallsBackToRawText(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "ok beta i will do it, what is your number?"}, nil
	})
	agent := NewAgent(llm, logging.New("error"))

	reply, err := agent.Engage(context.Background(), EngageRequest{ConversationID: "conv-1", Text: "hi", Turn: 1})
	require.NoError(t, err)

	assert.Equal(t, "ok beta i will do it, what is your number?", reply.Text)
	assert.Zero(t, reply.Intel.Count())
}

func TestEngagePropagatesModelFailure(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, req LLMRequest) (LLMResponse, error) {
		return LLMResponse{}, errors.New("all variants down")
	})
	agent := NewAgent(llm, logging.New("error"))

	_, err := agent.Engage(context.Background(), EngageRequest{ConversationID: "conv-1", Text: "hi", Turn: 1})
	assert.Error(t, err)
}

func TestEngagePromptCarriesStateAndBait(t *testing.T) {
	var req LLMRequest
	llm := llmFunc(func(ctx context.Context, r LLMRequest) (LLMResponse, error) {
		req = r
		return LLMResponse{Text: "ok?"}, nil
	})
	agent := NewAgent(llm, logging.New("error"))

	bait := NewBaitData("conv-9")
	_, err := agent.Engage(context.Background(), EngageRequest{
		ConversationID: "conv-9",
		Text:           "pay the fee now",
		ThreatType:     "banking_fraud",
		Turn:           3,
		Captured:       []string{"upi_ids"},
		Missing:        []string{"phone_numbers", "bank_accounts"},
		Bait:           bait,
	})
	require.NoError(t, err)
	require.NotEmpty(t, req.System)

	system := req.System
	assert.Contains(t, system, "upi_ids")
	assert.Contains(t, system, "phone_numbers, bank_accounts")
	assert.Contains(t, system, bait.BankAccount)
	assert.Contains(t, system, bait.UPIID)
}

func TestEngageTrimsHistoryWindow(t *testing.T) {
	var got LLMRequest
	llm := llmFunc(func(ctx context.Context, r LLMRequest) (LLMResponse, error) {
		got = r
		return LLMResponse{Text: "ok?"}, nil
	})
	agent := NewAgent(llm, logging.New("error"))

	history := make([]ChatMessage, 25)
	for i := range history {
		history[i] = ChatMessage{Role: ChatRoleUser, Content: "msg"}
	}

	_, err := agent.Engage(context.Background(), EngageRequest{ConversationID: "c", Text: "latest", History: history, Turn: 26})
	require.NoError(t, err)

	// Window plus the current message.
	assert.Len(t, got.Messages, historyWindow+1)
	assert.Equal(t, "latest", got.Messages[len(got.Messages)-1].Content)
}

func TestBaitDataDeterministicPerConversation(t *testing.T) {
	a := NewBaitData("conv-42")
	b := NewBaitData("conv-42")
	c := NewBaitData("conv-43")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.BankAccount, c.BankAccount)
}

func TestBaitDataValuesAreWellFormed(t *testing.T) {
	b := NewBaitData("conv-1")

	assert.Len(t, b.Phone, 10)
	assert.True(t, strings.HasPrefix(b.Phone, "9"))
	assert.Len(t, b.BankAccount, 11)
	assert.Len(t, b.IFSC, 11)
	assert.Equal(t, byte('0'), b.IFSC[4])
	assert.Contains(t, b.UPIID, "@oksbi")
	assert.Len(t, b.CardNumber, 16)

	values := b.Values()
	assert.Contains(t, values, strings.ToLower(b.UPIID))
	assert.Contains(t, values, b.BankAccount)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestCannedReplyRotation(t *testing.T) {
	assert.NotEqual(t, FallbackReply(1), FallbackReply(2))
	assert.Equal(t, FallbackReply(1), FallbackReply(1+len(fallbackReplies)))
	assert.NotEmpty(t, ExitLine(1))
	assert.NotEmpty(t, NeutralReply(1))
}
