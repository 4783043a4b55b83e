package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stickynet/sticky-net/internal/detection"
	"github.com/stickynet/sticky-net/internal/engagement"
	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/internal/observability/metrics"
	"github.com/stickynet/sticky-net/internal/policy"
	"github.com/stickynet/sticky-net/internal/report"
	"github.com/stickynet/sticky-net/internal/session"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// ErrEmptyMessage rejects turns with no inbound text before any state is
// touched.
var ErrEmptyMessage = errors.New("engine: message text is required")

// Config carries the engine's per-turn knobs.
type Config struct {
	// EngagementTimeout bounds the model call for one persona reply.
	EngagementTimeout time.Duration
	// RequiredKinds are extra entity kinds the prompt targets beyond the
	// payment-plus-contact minimum.
	RequiredKinds []intel.Kind
}

// Request is one inbound scammer message.
type Request struct {
	// ConversationID is client-supplied; empty means a new conversation.
	ConversationID string
	Text           string
	// History carries prior context for conversations the caller tracked
	// elsewhere. It only seeds brand-new state.
	History  []session.Message
	Metadata map[string]string
}

// Result is the outcome of one processed turn.
type Result struct {
	ConversationID  string
	ScamDetected    bool
	ScamType        string
	Confidence      float64
	Mode            policy.Mode
	Reply           string
	EmotionalTone   string
	Entities        *intel.Intelligence
	TurnCount       int
	DurationSeconds int
	ExitReason      string
	Completed       bool
}

// Engine runs the per-turn pipeline: detect, extract, escalate, engage,
// report. All state mutation happens under the session store's per-id lock.
type Engine struct {
	cfg       Config
	sessions  *session.Store
	fusion    *detection.Fusion
	policy    *policy.Policy
	extractor *intel.Extractor
	agent     *engagement.Agent
	publisher *report.Publisher
	metrics   *metrics.EngineMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// New creates the engine. publisher and m may be nil; everything else is
// required.
func New(cfg Config, sessions *session.Store, fusion *detection.Fusion, pol *policy.Policy,
	extractor *intel.Extractor, agent *engagement.Agent, publisher *report.Publisher,
	m *metrics.EngineMetrics, logger *logging.Logger) *Engine {
	if sessions == nil {
		panic("engine: session store is required")
	}
	if fusion == nil {
		panic("engine: fusion is required")
	}
	if pol == nil {
		panic("engine: policy is required")
	}
	if extractor == nil {
		panic("engine: extractor is required")
	}
	if agent == nil {
		panic("engine: agent is required")
	}
	if logger == nil {
		panic("engine: logger is required")
	}
	return &Engine{
		cfg:       cfg,
		sessions:  sessions,
		fusion:    fusion,
		policy:    pol,
		extractor: extractor,
		agent:     agent,
		publisher: publisher,
		metrics:   m,
		logger:    logger.Component("engine"),
		now:       time.Now,
	}
}

// ProcessTurn handles one scammer message end to end and always produces a
// result when the input is valid: collaborator failures degrade to canned
// replies, never to an aborted turn.
func (e *Engine) ProcessTurn(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, ErrEmptyMessage
	}
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	started := e.now()
	var result Result
	err := e.sessions.WithTurn(ctx, id, func(state *session.State) error {
		result = e.runTurn(ctx, id, req, state)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Completed conversations do not need to stay resident; the snapshot
	// answers any late arrivals.
	if result.Completed {
		e.sessions.Release(id)
	}

	e.metrics.ObserveTurn(string(result.Mode), e.now().Sub(started).Seconds())
	return result, nil
}

func (e *Engine) runTurn(ctx context.Context, id string, req Request, state *session.State) Result {
	now := e.now()

	// Terminal conversations accept no further turns.
	if state.Mode.Terminal() {
		return e.result(state, "", "")
	}

	// Client-tracked history seeds brand-new state: the turn number picks up
	// where the counterpart's message count left off.
	if state.TurnCount == 0 && len(state.History) == 0 && len(req.History) > 0 {
		state.History = append(state.History, req.History...)
		for _, msg := range req.History {
			if msg.Sender == session.SenderScammer {
				state.TurnCount++
			}
		}
	}

	prior := state.Verdict()
	turn := state.TurnCount + 1
	state.TurnCount = turn

	chatHistory := toChatHistory(state.History)

	signals := detection.Score(req.Text)
	verdict := e.fusion.Fuse(ctx, req.Text, chatHistory, signals, prior)
	state.Confidence = verdict.Confidence
	state.ThreatType = verdict.ThreatType
	state.Indicators = verdict.Indicators
	e.metrics.ObserveVerdict(string(verdict.ThreatType), verdict.IsThreat)

	state.Mode = e.policy.Escalate(state.Mode, state.Confidence)

	// Monitoring conversations get a neutral reply and nothing more: no
	// entity extraction and no exit evaluation until the verdict crosses the
	// engagement threshold.
	if state.Mode == policy.ModeMonitoring {
		reply := engagement.NeutralReply(turn)
		state.AppendTurn(req.Text, reply, now)
		return e.result(state, reply, "")
	}

	bait := engagement.NewBaitData(id)
	baitValues := bait.Values()

	gained := e.mergeIntel(state, e.extractor.Extract(req.Text), baitValues)
	if gained > 0 {
		state.TurnsSinceNewEntity = 0
	} else {
		state.TurnsSinceNewEntity++
	}

	exitIn := policy.ExitInput{
		Turn:                turn,
		Elapsed:             now.Sub(state.StartedAt),
		Intel:               state.Entities,
		InboundText:         req.Text,
		TurnsSinceNewEntity: state.TurnsSinceNewEntity,
	}

	// Exit conditions are checked before spending a model call on the turn.
	if reason, ok := e.policy.EvaluateExit(exitIn); ok {
		reply := engagement.ExitLine(turn)
		e.complete(ctx, state, reason)
		state.AppendTurn(req.Text, reply, now)
		return e.result(state, reply, "")
	}

	reply, tone := e.engage(ctx, id, req.Text, chatHistory, state, turn, bait, baitValues)

	// The model may have spotted entities the regex pass missed. A completed
	// high-value set ends the conversation on this turn.
	exitIn.Intel = state.Entities
	exitIn.TurnsSinceNewEntity = state.TurnsSinceNewEntity
	if reason, ok := e.policy.EvaluateExit(exitIn); ok {
		e.complete(ctx, state, reason)
	}

	state.AppendTurn(req.Text, reply, now)
	return e.result(state, reply, tone)
}

// engage produces the persona's reply, degrading to a canned line when the
// model cascade fails. Validated candidates from the model are merged here.
func (e *Engine) engage(ctx context.Context, id, text string, chatHistory []engagement.ChatMessage,
	state *session.State, turn int, bait *engagement.BaitData, baitValues map[string]struct{}) (string, string) {

	engageCtx := ctx
	if e.cfg.EngagementTimeout > 0 {
		var cancel context.CancelFunc
		engageCtx, cancel = context.WithTimeout(ctx, e.cfg.EngagementTimeout)
		defer cancel()
	}

	agentReply, err := e.agent.Engage(engageCtx, engagement.EngageRequest{
		ConversationID: id,
		Text:           text,
		History:        chatHistory,
		ThreatType:     string(state.ThreatType),
		Turn:           turn,
		Captured:       capturedKinds(state.Entities),
		Missing:        e.missingKinds(state.Entities),
		Bait:           bait,
	})
	if err != nil {
		e.logger.Warn("engagement failed, using canned reply",
			"conversation_id", id,
			"turn", turn,
			"error", err.Error(),
		)
		e.metrics.ObserveLLMFallback()
		return engagement.FallbackReply(turn), "confused"
	}

	gained := e.mergeIntel(state, e.extractor.ValidateCandidates(agentReply.Intel), baitValues)
	if gained > 0 {
		state.TurnsSinceNewEntity = 0
	}
	return agentReply.Text, agentReply.EmotionalTone
}

// mergeIntel filters self-issued bait out of found entities and merges the
// rest into state, returning how many new values landed.
func (e *Engine) mergeIntel(state *session.State, found *intel.Intelligence, baitValues map[string]struct{}) int {
	if found == nil {
		return 0
	}
	found = intel.FilterSelfIssued(found, baitValues)
	before := state.Entities.Count()
	state.Entities.Merge(found)
	gained := state.Entities.Count() - before
	e.metrics.ObserveEntities(gained)
	return gained
}

// complete transitions the conversation to its terminal state and publishes
// the final report. Publishing failures are logged, never propagated.
func (e *Engine) complete(ctx context.Context, state *session.State, reason string) {
	state.Mode = policy.ModeComplete
	state.ExitReason = reason
	e.metrics.ObserveExit(reason)

	e.logger.Info("conversation complete",
		"conversation_id", state.ID,
		"exit_reason", reason,
		"turn_count", state.TurnCount,
		"entity_count", state.Entities.Count(),
	)

	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, report.FinalReport{
		ConversationID:    state.ID,
		IsThreat:          state.ThreatType != "",
		ThreatType:        string(state.ThreatType),
		Confidence:        state.Confidence,
		TurnCount:         state.TurnCount,
		DurationSeconds:   int(e.now().Sub(state.StartedAt).Seconds()),
		ExtractedEntities: state.Entities,
		ExitReason:        reason,
		ReportedAt:        e.now().UTC(),
	})
	e.metrics.ObserveReportPublish(err)
	if err != nil {
		e.logger.Error("final report publish failed",
			"conversation_id", state.ID,
			"error", err.Error(),
		)
	}
}

func (e *Engine) result(state *session.State, reply, tone string) Result {
	return Result{
		ConversationID:  state.ID,
		ScamDetected:    state.ThreatType != "",
		ScamType:        string(state.ThreatType),
		Confidence:      state.Confidence,
		Mode:            state.Mode,
		Reply:           reply,
		EmotionalTone:   tone,
		Entities:        state.Entities,
		TurnCount:       state.TurnCount,
		DurationSeconds: int(e.now().Sub(state.StartedAt).Seconds()),
		ExitReason:      state.ExitReason,
		Completed:       state.Mode.Terminal(),
	}
}

// missingKinds lists what the prompt should still chase: the high-value
// minimum first, then any configured extra kinds.
func (e *Engine) missingKinds(in *intel.Intelligence) []string {
	var missing []string
	if !in.HasPaymentIdentifier() {
		missing = append(missing, "bank account or UPI id")
	}
	if !in.HasContactIdentifier() {
		missing = append(missing, "phone or WhatsApp number")
	}
	for _, k := range e.cfg.RequiredKinds {
		if !in.Has(k) {
			missing = append(missing, string(k))
		}
	}
	return missing
}

func capturedKinds(in *intel.Intelligence) []string {
	var captured []string
	for _, k := range intel.AllKinds() {
		if in.Has(k) {
			captured = append(captured, string(k))
		}
	}
	return captured
}

func toChatHistory(history []session.Message) []engagement.ChatMessage {
	if len(history) == 0 {
		return nil
	}
	out := make([]engagement.ChatMessage, 0, len(history))
	for _, msg := range history {
		role := engagement.ChatRoleUser
		if msg.Sender == session.SenderAgent {
			role = engagement.ChatRoleAssistant
		}
		out = append(out, engagement.ChatMessage{Role: role, Content: msg.Text})
	}
	return out
}
