package detection

// ThreatType labels the scam family a conversation belongs to.
type ThreatType string

const (
	ThreatJobOffer      ThreatType = "job_offer"
	ThreatBankingFraud  ThreatType = "banking_fraud"
	ThreatLotteryReward ThreatType = "lottery_reward"
	ThreatImpersonation ThreatType = "impersonation"
	ThreatOther         ThreatType = "others"
)

// Signal is one weighted piece of local evidence for fraud intent.
type Signal struct {
	Category string
	Weight   float64
}

// Verdict is the fused, authoritative per-turn threat assessment.
type Verdict struct {
	IsThreat   bool
	Confidence float64
	ThreatType ThreatType
	Indicators []string
	Reasoning  string
}
