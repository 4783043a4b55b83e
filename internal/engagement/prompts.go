package engagement

import (
	"fmt"
	"strings"
)

// honeypotSystemPrompt drives the persona. The model decides what to ask next
// from the state section; it answers in one JSON document containing both the
// reply and any counterpart details it spotted.
const honeypotSystemPrompt = `You are a honeypot agent playing "Pushpa Verma", a naive elderly victim. Extract intelligence from scammers while staying in character.

## PERSONA
- 65+ retired teacher from Delhi, lives alone, son in Bangalore
- Very low tech literacy, trusting, panics easily, says "beta"/"sir"
- Typing: lowercase, minimal punctuation, typos like "teh" "waht" "pls"
- Short replies (1-3 sentences), natural and human
- Current emotional state: %s

## STATE
- Turn: %d | Already captured: %s | Still missing: %s

## DECOY DATA (give when the scammer asks for YOUR info)
%s
Give naturally, then follow with a question asking for the scammer's own details.

## RULES
- Reference something suspicious about what the scammer just said, as confused Pushpa
- Comply anyway and offer decoy data to keep them talking
- End every reply with a question asking for the scammer's details: phone number,
  UPI ID, bank account, email, website, employee ID, case number, name, office
- NEVER reveal you know it's a scam. NEVER say: scam, fraud, phishing, honeypot
- Do not repeat a question you already got an answer to

## SCAMMER vs VICTIM
Capture only the SCAMMER's details ("transfer to [account]", "contact me at [number]").
Never capture details they claim are the victim's own.

## OUTPUT - return ONLY this JSON, nothing else
{
  "reply_text": "your response as Pushpa",
  "emotional_tone": "confused|panicked|worried|cooperative|scared",
  "extracted_intelligence": {
    "bankAccounts": [],
    "upiIds": [],
    "phoneNumbers": [],
    "whatsappNumbers": [],
    "emails": [],
    "phishingLinks": [],
    "beneficiaryNames": [],
    "bankNames": [],
    "ifscCodes": [],
    "cryptoAddresses": [],
    "otherCriticalInfo": []
  }
}
Populate arrays only with the scammer's details found in their messages. otherCriticalInfo entries are {"label": "...", "value": "..."} pairs for anything notable that fits no list.`

// emotionalTone picks the persona's state from the scam family and how deep
// the conversation is. Early turns read confused, later ones cooperative.
func emotionalTone(threatType string, turn int) string {
	switch threatType {
	case "impersonation":
		if turn <= 2 {
			return "scared"
		}
		return "cooperative"
	case "banking_fraud":
		if turn <= 2 {
			return "panicked"
		}
		return "worried"
	case "lottery_reward", "job_offer":
		return "cooperative"
	default:
		if turn <= 2 {
			return "confused"
		}
		return "worried"
	}
}

// buildSystemPrompt assembles the persona instruction for one turn.
func buildSystemPrompt(threatType string, turn int, captured, missing []string, bait *BaitData) string {
	capturedText := "nothing yet"
	if len(captured) > 0 {
		capturedText = strings.Join(captured, ", ")
	}
	missingText := "all captured"
	if len(missing) > 0 {
		missingText = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(honeypotSystemPrompt,
		emotionalTone(threatType, turn),
		turn,
		capturedText,
		missingText,
		bait.PromptSection(),
	)
}

// fallbackReplies keep a turn alive when every model variant fails. Confused
// victim lines, picked deterministically by turn so consecutive fallbacks
// differ.
var fallbackReplies = []string{
	"I'm sorry, I'm a bit confused. Can you explain that again?",
	"My phone is acting up. What do I need to do exactly?",
	"I didn't understand. Can you tell me step by step?",
	"Okay, but what should I do first? I'm worried.",
}

// FallbackReply returns a canned in-character line for the given turn.
func FallbackReply(turn int) string {
	if turn < 1 {
		turn = 1
	}
	return fallbackReplies[(turn-1)%len(fallbackReplies)]
}

// exitLines close a conversation without tipping the counterpart off.
var exitLines = []string{
	"My son just came home, I will ask him to help me with this. Thank you.",
	"I have to go now, the doctor is here. I will do it later.",
	"My phone battery is dying, I will call you back from the shop.",
}

// ExitLine returns a canned closing line for a finished conversation.
func ExitLine(turn int) string {
	if turn < 1 {
		turn = 1
	}
	return exitLines[(turn-1)%len(exitLines)]
}

// neutralReplies answer messages the engine is not yet treating as threats.
var neutralReplies = []string{
	"Sorry, who is this?",
	"I think you have the wrong number.",
	"Ok.",
}

// NeutralReply returns a low-commitment line for monitoring-mode turns.
func NeutralReply(turn int) string {
	if turn < 1 {
		turn = 1
	}
	return neutralReplies[(turn-1)%len(neutralReplies)]
}
