package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickynet/sticky-net/internal/detection"
	"github.com/stickynet/sticky-net/internal/engagement"
	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/internal/policy"
	"github.com/stickynet/sticky-net/internal/report"
	"github.com/stickynet/sticky-net/internal/session"
	"github.com/stickynet/sticky-net/pkg/logging"
)

type stubClassifier struct {
	verdict detection.Verdict
	err     error
	calls   int
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ []engagement.ChatMessage, _ *detection.Verdict) (detection.Verdict, error) {
	s.calls++
	return s.verdict, s.err
}

type stubLLM struct {
	text  string
	err   error
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _ engagement.LLMRequest) (engagement.LLMResponse, error) {
	s.calls++
	if s.err != nil {
		return engagement.LLMResponse{}, s.err
	}
	return engagement.LLMResponse{Text: s.text}, nil
}

func agentJSON(reply string, entities intel.Intelligence) string {
	payload := map[string]any{
		"reply_text":             reply,
		"emotional_tone":         "worried",
		"extracted_intelligence": entities,
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

type harness struct {
	engine     *Engine
	classifier *stubClassifier
	llm        *stubLLM
	queue      *report.MemoryQueue
	sessions   *session.Store
}

func newHarness(t *testing.T, polCfg policy.Config, llm *stubLLM, classifier *stubClassifier) *harness {
	t.Helper()
	return newHarnessWithStore(t, polCfg, llm, classifier, session.NewStore(nil, logging.New("error")))
}

func newHarnessWithStore(t *testing.T, polCfg policy.Config, llm *stubLLM, classifier *stubClassifier, sessions *session.Store) *harness {
	t.Helper()
	logger := logging.New("error")

	if classifier == nil {
		classifier = &stubClassifier{verdict: detection.Verdict{Confidence: 0.1}}
	}
	if llm == nil {
		llm = &stubLLM{text: agentJSON("haan beta, which account number?", intel.Intelligence{})}
	}
	if polCfg.CautiousThreshold == 0 {
		polCfg = policy.Config{
			CautiousThreshold:   0.60,
			AggressiveThreshold: 0.85,
			MaxTurns:            20,
			MaxDuration:         30 * time.Minute,
			StaleTurnLimit:      5,
		}
	}

	fusion := detection.NewFusion(detection.FusionConfig{
		FastPathThreshold:  0.90,
		FallbackConfidence: 0.50,
		EngageThreshold:    polCfg.CautiousThreshold,
		CategoryBoost:      0.05,
		MaxBoost:           0.15,
	}, classifier, logger)

	queue := report.NewMemoryQueue(8)

	eng := New(
		Config{EngagementTimeout: 5 * time.Second},
		sessions,
		fusion,
		policy.New(polCfg),
		intel.NewExtractor(logger),
		engagement.NewAgent(llm, logger),
		report.NewPublisher(queue, logger),
		nil,
		logger,
	)
	return &harness{engine: eng, classifier: classifier, llm: llm, queue: queue, sessions: sessions}
}

func (h *harness) drainReports(t *testing.T) []report.FinalReport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var reports []report.FinalReport
	for {
		batch, err := h.queue.Dequeue(ctx, 10, 0)
		if err != nil || len(batch) == 0 {
			return reports
		}
		for _, qr := range batch {
			reports = append(reports, qr.Report)
		}
	}
}

func TestProcessTurnRejectsEmptyText(t *testing.T) {
	h := newHarness(t, policy.Config{}, nil, nil)

	_, err := h.engine.ProcessTurn(context.Background(), Request{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestProcessTurnGeneratesConversationID(t *testing.T) {
	h := newHarness(t, policy.Config{}, nil, nil)

	res, err := h.engine.ProcessTurn(context.Background(), Request{Text: "hello there"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConversationID)
	assert.Equal(t, 1, res.TurnCount)
}

func TestBenignMessageStaysMonitoring(t *testing.T) {
	h := newHarness(t, policy.Config{}, nil, &stubClassifier{verdict: detection.Verdict{Confidence: 0.1}})

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-benign",
		Text:           "hi, are we still on for lunch tomorrow?",
	})
	require.NoError(t, err)

	assert.False(t, res.ScamDetected)
	assert.Equal(t, policy.ModeMonitoring, res.Mode)
	assert.NotEmpty(t, res.Reply)
	// The persona model is never consulted below the engagement threshold.
	assert.Zero(t, h.llm.calls)
}

func TestMonitoringConversationNeverCapturesEntities(t *testing.T) {
	h := newHarness(t, policy.Config{}, nil, &stubClassifier{verdict: detection.Verdict{Confidence: 0.1}})

	// Extractable identifiers in a message the verdict scored benign must not
	// be collected, and must not trigger an intelligence-complete exit.
	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-benign-ids",
		Text:           "call me on 9876543210 and send the gift to kiran@oksbi, see you at the party",
	})
	require.NoError(t, err)

	assert.Equal(t, policy.ModeMonitoring, res.Mode)
	assert.False(t, res.ScamDetected)
	assert.False(t, res.Completed)
	assert.Empty(t, res.ExitReason)
	assert.Zero(t, res.Entities.Count())
	assert.Zero(t, h.llm.calls)
	assert.Empty(t, h.drainReports(t))
}

func TestCredentialRequestFastPathEngagesAggressively(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{Confidence: 0.2}}
	h := newHarness(t, policy.Config{}, nil, classifier)

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-otp",
		Text:           "Your account is blocked. Share your OTP immediately to verify.",
	})
	require.NoError(t, err)

	assert.True(t, res.ScamDetected)
	assert.GreaterOrEqual(t, res.Confidence, 0.90)
	assert.Equal(t, policy.ModeAggressive, res.Mode)
	// Fast path: the external classifier is skipped entirely.
	assert.Zero(t, classifier.calls)
	assert.Equal(t, 1, h.llm.calls)
	assert.Equal(t, "haan beta, which account number?", res.Reply)
}

func TestConfidenceNeverDropsAcrossTurns(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.75,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{}, nil, classifier)
	ctx := context.Background()

	res1, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-mono", Text: "your bank account needs verification"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res1.Confidence, 0.75)

	// A later innocuous message with a weak external read must not lower
	// confidence or clear the threat type.
	classifier.verdict = detection.Verdict{Confidence: 0.2}
	res2, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-mono", Text: "ok thanks"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res2.Confidence, res1.Confidence)
	assert.Equal(t, "banking_fraud", res2.ScamType)
	assert.Equal(t, policy.ModeCautious, res2.Mode)
}

func TestRegexExtractionMergesEntities(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{}, nil, classifier)

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-extract",
		Text:           "transfer to account 123456789012 and call me on 9876543210",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"123456789012"}, res.Entities.BankAccounts)
	assert.Equal(t, []string{"9876543210"}, res.Entities.PhoneNumbers)
}

func TestIntelligenceCompleteEndsConversation(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.9,
		ThreatType: detection.ThreatBankingFraud,
	}}
	llm := &stubLLM{text: agentJSON("ok beta i will send", intel.Intelligence{
		UPIIDs:       []string{"collect@ybl"},
		PhoneNumbers: []string{"9123456780"},
	})}
	h := newHarness(t, policy.Config{}, llm, classifier)

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-complete",
		Text:           "send the money now or your account will be suspended",
	})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, policy.ModeComplete, res.Mode)
	assert.Equal(t, policy.ExitIntelligence, res.ExitReason)
	assert.Equal(t, []string{"collect@ybl"}, res.Entities.UPIIDs)

	reports := h.drainReports(t)
	require.Len(t, reports, 1)
	assert.Equal(t, "conv-complete", reports[0].ConversationID)
	assert.Equal(t, policy.ExitIntelligence, reports[0].ExitReason)
	assert.True(t, reports[0].IsThreat)
}

func TestTurnLimitExitsBeforeEngaging(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{
		CautiousThreshold:   0.60,
		AggressiveThreshold: 0.85,
		MaxTurns:            3,
		MaxDuration:         30 * time.Minute,
		StaleTurnLimit:      10,
	}, nil, classifier)
	ctx := context.Background()

	var res Result
	var err error
	for i := 0; i < 3; i++ {
		res, err = h.engine.ProcessTurn(ctx, Request{
			ConversationID: "conv-limit",
			Text:           fmt.Sprintf("urgent, verify your bank account now %d", i),
		})
		require.NoError(t, err)
	}

	assert.True(t, res.Completed)
	assert.Equal(t, policy.ExitTurnLimit, res.ExitReason)
	assert.NotEmpty(t, res.Reply)
	// Turns 1 and 2 engage; the limit turn gets a canned exit line instead.
	assert.Equal(t, 2, h.llm.calls)

	reports := h.drainReports(t)
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].TurnCount)
}

func TestTerminalConversationIsNoOp(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{
		CautiousThreshold:   0.60,
		AggressiveThreshold: 0.85,
		MaxTurns:            1,
		MaxDuration:         30 * time.Minute,
		StaleTurnLimit:      10,
	}, nil, classifier)
	ctx := context.Background()

	res, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-done", Text: "verify your account"})
	require.NoError(t, err)
	require.True(t, res.Completed)

	// Further turns return the terminal result without processing.
	res2, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-done", Text: "hello?? answer me"})
	require.NoError(t, err)
	assert.True(t, res2.Completed)
	assert.Empty(t, res2.Reply)
	assert.Equal(t, res.TurnCount, res2.TurnCount)

	// Only one report, from the completing turn.
	assert.Len(t, h.drainReports(t), 1)
}

func TestCompletedConversationReleasedToSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.New("error")
	sessions := session.NewStore(session.NewRedisSnapshots(client, nil, time.Hour), logger)

	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarnessWithStore(t, policy.Config{
		CautiousThreshold:   0.60,
		AggressiveThreshold: 0.85,
		MaxTurns:            1,
		MaxDuration:         30 * time.Minute,
		StaleTurnLimit:      10,
	}, nil, classifier, sessions)
	ctx := context.Background()

	res, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-done", Text: "verify your account"})
	require.NoError(t, err)
	require.True(t, res.Completed)

	// The terminal entry is evicted from memory, leaving the snapshot behind.
	assert.False(t, h.sessions.Peek("conv-done", func(*session.State) {}))

	// A late message reloads the snapshot and still gets the terminal no-op.
	res2, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-done", Text: "hello??"})
	require.NoError(t, err)
	assert.True(t, res2.Completed)
	assert.Empty(t, res2.Reply)
	assert.Equal(t, res.TurnCount, res2.TurnCount)
	assert.Len(t, h.drainReports(t), 1)
}

func TestSuspiciousCounterpartExits(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{}, nil, classifier)
	ctx := context.Background()

	_, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-sus", Text: "verify your bank account"})
	require.NoError(t, err)

	res, err := h.engine.ProcessTurn(ctx, Request{ConversationID: "conv-sus", Text: "wait. are you a bot?"})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, policy.ExitSuspicious, res.ExitReason)
}

func TestLLMFailureFallsBackToCannedReply(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	llm := &stubLLM{err: errors.New("all models throttled")}
	h := newHarness(t, policy.Config{}, llm, classifier)

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-fallback",
		Text:           "verify your account immediately",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Reply)
	assert.Equal(t, "confused", res.EmotionalTone)
	assert.False(t, res.Completed)
}

func TestSelfIssuedBaitIsNotCaptured(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{}, nil, classifier)

	bait := engagement.NewBaitData("conv-bait")
	text := fmt.Sprintf("so your UPI is %s and account %s, confirmed? now pay to scammer@okaxis",
		bait.UPIID, bait.BankAccount)

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-bait",
		Text:           text,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"scammer@okaxis"}, res.Entities.UPIIDs)
	assert.NotContains(t, res.Entities.BankAccounts, bait.BankAccount)
}

func TestClientHistorySeedsTurnCount(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{}, nil, classifier)

	history := []session.Message{
		{Sender: session.SenderScammer, Text: "your account is blocked", Timestamp: time.Now()},
		{Sender: session.SenderAgent, Text: "oh no beta what do i do", Timestamp: time.Now()},
		{Sender: session.SenderScammer, Text: "pay the fee to unblock", Timestamp: time.Now()},
		{Sender: session.SenderAgent, Text: "which account pls", Timestamp: time.Now()},
	}

	res, err := h.engine.ProcessTurn(context.Background(), Request{
		ConversationID: "conv-history",
		Text:           "send to account 123456789012",
		History:        history,
	})
	require.NoError(t, err)

	// Two prior scammer messages plus this one.
	assert.Equal(t, 3, res.TurnCount)
}

func TestStaleConversationExits(t *testing.T) {
	classifier := &stubClassifier{verdict: detection.Verdict{
		Confidence: 0.8,
		ThreatType: detection.ThreatBankingFraud,
	}}
	h := newHarness(t, policy.Config{
		CautiousThreshold:   0.60,
		AggressiveThreshold: 0.85,
		MaxTurns:            50,
		MaxDuration:         30 * time.Minute,
		StaleTurnLimit:      2,
	}, nil, classifier)
	ctx := context.Background()

	var res Result
	var err error
	for i := 0; i < 2; i++ {
		res, err = h.engine.ProcessTurn(ctx, Request{
			ConversationID: "conv-stale",
			Text:           "just do it, hurry up and verify your account",
		})
		require.NoError(t, err)
	}

	assert.True(t, res.Completed)
	assert.Equal(t, policy.ExitStale, res.ExitReason)
}
