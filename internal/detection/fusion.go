package detection

import (
	"context"
	"time"

	"github.com/stickynet/sticky-net/internal/engagement"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// FusionConfig carries the thresholds the fusion step works with.
type FusionConfig struct {
	// FastPathThreshold short-circuits to a threat verdict on local evidence
	// alone, skipping the classifier call.
	FastPathThreshold float64
	// FallbackConfidence is the external confidence assumed when the
	// classifier is unavailable.
	FallbackConfidence float64
	// EngageThreshold is the confidence at which a verdict becomes a threat
	// (the cautious-mode threshold).
	EngageThreshold float64
	// CategoryBoost is added to the external confidence per matched signal
	// category, up to MaxBoost total.
	CategoryBoost float64
	MaxBoost      float64
	// ClassifierTimeout bounds each external classification call.
	ClassifierTimeout time.Duration
}

// Fusion combines local pattern signals with the external classifier into the
// single authoritative per-turn verdict. It is the only place confidence is
// computed, and it enforces monotonic escalation against the prior verdict.
type Fusion struct {
	cfg        FusionConfig
	classifier Classifier
	logger     *logging.Logger
}

// NewFusion creates the fusion step.
func NewFusion(cfg FusionConfig, classifier Classifier, logger *logging.Logger) *Fusion {
	if classifier == nil {
		panic("detection: classifier is required")
	}
	if logger == nil {
		panic("detection: logger is required")
	}
	return &Fusion{cfg: cfg, classifier: classifier, logger: logger.Component("fusion")}
}

// Fuse produces the turn's verdict. It never returns an error: classifier
// failures degrade to local-signal scoring with the fallback confidence.
func (f *Fusion) Fuse(ctx context.Context, text string, history []engagement.ChatMessage, signals []Signal, prior *Verdict) Verdict {
	local := LocalScore(signals)
	categories := Categories(signals)

	// Fast path: overwhelming local evidence skips the classifier.
	if local >= f.cfg.FastPathThreshold {
		verdict := Verdict{
			IsThreat:   true,
			Confidence: clamp01(local),
			ThreatType: inferThreatType(categories),
			Indicators: categories,
			Reasoning:  "local pattern evidence crossed the fast-path threshold",
		}
		return f.applyMonotonic(verdict, verdict.Confidence, prior)
	}

	external, err := f.classify(ctx, text, history, prior)
	if err != nil {
		f.logger.Warn("classifier unavailable, scoring on local signals only",
			"error", err.Error(),
		)
		external = Verdict{
			Confidence: f.cfg.FallbackConfidence,
			Reasoning:  "classifier unavailable",
		}
	}

	boost := f.cfg.CategoryBoost * float64(len(categories))
	if boost > f.cfg.MaxBoost {
		boost = f.cfg.MaxBoost
	}
	raw := clamp01(external.Confidence + boost)

	verdict := Verdict{
		ThreatType: external.ThreatType,
		Indicators: mergeIndicators(categories, external.Indicators),
		Reasoning:  external.Reasoning,
	}
	if verdict.ThreatType == "" && len(categories) > 0 {
		verdict.ThreatType = inferThreatType(categories)
	}
	return f.applyMonotonic(verdict, raw, prior)
}

func (f *Fusion) classify(ctx context.Context, text string, history []engagement.ChatMessage, prior *Verdict) (Verdict, error) {
	if f.cfg.ClassifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.ClassifierTimeout)
		defer cancel()
	}
	return f.classifier.Classify(ctx, text, history, prior)
}

// applyMonotonic enforces the escalation rule: final confidence never drops
// below the prior's, and an established threat type is only replaced by a
// strictly more confident assessment.
func (f *Fusion) applyMonotonic(verdict Verdict, raw float64, prior *Verdict) Verdict {
	final := raw
	if prior != nil {
		if prior.Confidence > final {
			final = prior.Confidence
		}
		if prior.ThreatType != "" && (raw <= prior.Confidence || verdict.ThreatType == "") {
			verdict.ThreatType = prior.ThreatType
		}
	}
	verdict.Confidence = clamp01(final)
	verdict.IsThreat = verdict.Confidence >= f.cfg.EngageThreshold
	if !verdict.IsThreat {
		verdict.ThreatType = ""
	}
	return verdict
}

// inferThreatType maps local signal categories onto a scam family when the
// external classifier did not supply one.
func inferThreatType(categories []string) ThreatType {
	has := make(map[string]bool, len(categories))
	for _, c := range categories {
		has[c] = true
	}
	switch {
	case has[CategoryAuthority]:
		return ThreatImpersonation
	case has[CategoryCredential]:
		return ThreatBankingFraud
	case has[CategoryReward]:
		return ThreatLotteryReward
	case has[CategoryJobBait]:
		return ThreatJobOffer
	default:
		return ThreatOther
	}
}

func mergeIndicators(local, external []string) []string {
	seen := make(map[string]struct{}, len(local)+len(external))
	out := make([]string, 0, len(local)+len(external))
	for _, list := range [][]string{local, external} {
		for _, v := range list {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}
