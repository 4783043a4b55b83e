package detection

import (
	"regexp"
	"strings"
)

// Signal categories.
const (
	CategoryUrgency       = "urgency"
	CategoryAuthority     = "authority_impersonation"
	CategoryCredential    = "credential_request"
	CategoryPayment       = "payment_request"
	CategoryReward        = "reward_bait"
	CategoryJobBait       = "job_bait"
	CategorySuspiciousURL = "suspicious_link"
)

// categoryWeights are the per-category contributions to the local score. A
// category contributes its weight once no matter how many of its patterns
// match. Credential requests alone clear the fast-path threshold.
var categoryWeights = map[string]float64{
	CategoryUrgency:       0.25,
	CategoryAuthority:     0.35,
	CategoryCredential:    0.90,
	CategoryPayment:       0.35,
	CategoryReward:        0.30,
	CategoryJobBait:       0.30,
	CategorySuspiciousURL: 0.30,
}

var categoryPatterns = map[string][]*regexp.Regexp{
	CategoryUrgency: {
		regexp.MustCompile(`(?i)\b(?:urgent(?:ly)?|immediately|right now|within \d+ (?:minutes|hours)|last (?:chance|warning)|act now|expires? (?:today|soon))\b`),
		regexp.MustCompile(`(?i)\b(?:account (?:will be|is being|gets) (?:blocked|suspended|frozen|closed)|blocked (?:today|within))\b`),
		regexp.MustCompile(`(?i)\b(?:don'?t (?:tell|share|inform)|keep (?:this|it) (?:secret|confidential))\b`),
	},
	CategoryAuthority: {
		regexp.MustCompile(`(?i)\b(?:i am|this is|calling from|speaking from)\b.{0,40}\b(?:police|cbi|cyber ?cell|income tax|customs|rbi|bank (?:official|officer|manager)|government|telecom department)\b`),
		regexp.MustCompile(`(?i)\b(?:arrest warrant|legal action|court notice|fir (?:has been|is) (?:filed|registered)|money laundering case)\b`),
		regexp.MustCompile(`(?i)\b(?:official (?:notice|communication)|verification (?:officer|department))\b`),
	},
	CategoryCredential: {
		regexp.MustCompile(`(?i)\b(?:share|send|tell|give|enter|confirm)\b.{0,40}\b(?:otp|one.?time.?password|pin|cvv|password|passcode)\b`),
		regexp.MustCompile(`(?i)\b(?:otp|cvv|pin)\b.{0,30}\b(?:share|send|tell|confirm|verify)\b`),
		regexp.MustCompile(`(?i)\b(?:card number and (?:expiry|cvv)|net ?banking (?:id|password|credentials)|aadhaar (?:number|otp))\b`),
	},
	CategoryPayment: {
		regexp.MustCompile(`(?i)\b(?:transfer|send|pay|deposit)\b.{0,40}\b(?:rs\.?|rupees|inr|₹|amount|money|fee|charge)\b`),
		regexp.MustCompile(`(?i)\b(?:registration|processing|security|refundable|activation) (?:fee|charge|deposit|amount)\b`),
		regexp.MustCompile(`(?i)\b(?:upi|google ?pay|gpay|phonepe|paytm)\b.{0,30}\b(?:transfer|send|pay|id)\b`),
	},
	CategoryReward: {
		regexp.MustCompile(`(?i)\b(?:congratulations?|you (?:have |are )?(?:won|win|selected)|lucky (?:draw|winner))\b`),
		regexp.MustCompile(`(?i)\b(?:lottery|jackpot|prize|reward points?|cash ?back|gift (?:card|voucher))\b`),
		regexp.MustCompile(`(?i)\b(?:claim your|redeem (?:your|now)|crore|lakh)\b`),
	},
	CategoryJobBait: {
		regexp.MustCompile(`(?i)\b(?:part.?time job|work from home|earn (?:rs\.?|₹|money|daily|upto)|daily (?:income|earning|payout))\b`),
		regexp.MustCompile(`(?i)\b(?:like (?:and subscribe|videos)|simple tasks?|no (?:experience|investment) (?:needed|required))\b`),
	},
	CategorySuspiciousURL: {
		regexp.MustCompile(`(?i)https?://(?:bit\.ly|tinyurl\.com|t\.co|cutt\.ly|rb\.gy|is\.gd)/\S+`),
		regexp.MustCompile(`(?i)https?://\d{1,3}(?:\.\d{1,3}){3}\S*`),
		regexp.MustCompile(`(?i)https?://\S*(?:kyc|verify|secure|unblock|netbanking)\S*`),
	},
}

// maxScoreBytes bounds pattern scanning on oversized input. All patterns are
// linear-time, so this is a hard ceiling on per-turn work.
const maxScoreBytes = 16384

// Score classifies raw text into weighted threat signals. Pure function, safe
// for unlimited concurrent calls. Each matched category contributes exactly
// one signal at the category weight.
func Score(text string) []Signal {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) > maxScoreBytes {
		text = text[:maxScoreBytes]
	}

	var signals []Signal
	for _, category := range scoreOrder {
		for _, pattern := range categoryPatterns[category] {
			if pattern.MatchString(text) {
				signals = append(signals, Signal{Category: category, Weight: categoryWeights[category]})
				break
			}
		}
	}
	return signals
}

// scoreOrder keeps signal output deterministic across calls.
var scoreOrder = []string{
	CategoryCredential,
	CategoryAuthority,
	CategoryPayment,
	CategoryUrgency,
	CategoryReward,
	CategoryJobBait,
	CategorySuspiciousURL,
}

// LocalScore sums signal weights, capped at 1.0.
func LocalScore(signals []Signal) float64 {
	var score float64
	for _, s := range signals {
		score += s.Weight
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Categories returns the distinct categories present in the signal set.
func Categories(signals []Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Category)
	}
	return out
}
