package engagement

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

// BaitData is the fabricated identity the honeypot hands out to sustain
// engagement. It is derived deterministically from the conversation id so
// every turn of one conversation offers the same story, and its values are
// registered as self-issued so the merger never mistakes them for
// counterpart-supplied intelligence.
type BaitData struct {
	Name        string
	Age         int
	Address     string
	Phone       string
	BankName    string
	BankAccount string
	IFSC        string
	UPIID       string
	CardNumber  string
	CardExpiry  string
	CardCVV     string
	OTP         string
	Aadhaar     string
	PAN         string
	CustomerID  string
}

var baitNames = []string{
	"Pushpa Verma", "Kamla Devi", "Savitri Sharma", "Shanti Gupta",
}

var baitBanks = []struct {
	name string
	code string
}{
	{"State Bank of India", "SBIN"},
	{"Punjab National Bank", "PUNB"},
	{"Bank of Baroda", "BARB"},
	{"Canara Bank", "CNRB"},
}

var baitStreets = []string{
	"Lajpat Nagar", "Karol Bagh", "Rohini Sector 9", "Mayur Vihar Phase 1",
}

// NewBaitData builds the decoy identity for a conversation.
func NewBaitData(conversationID string) *BaitData {
	h := fnv.New64a()
	h.Write([]byte(conversationID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	bank := baitBanks[rng.Intn(len(baitBanks))]
	name := baitNames[rng.Intn(len(baitNames))]
	handle := strings.ToLower(strings.Split(name, " ")[0])

	return &BaitData{
		Name:        name,
		Age:         62 + rng.Intn(14),
		Address:     fmt.Sprintf("%d, %s, Delhi", 1+rng.Intn(200), baitStreets[rng.Intn(len(baitStreets))]),
		Phone:       fmt.Sprintf("9%09d", rng.Intn(1_000_000_000)),
		BankName:    bank.name,
		BankAccount: fmt.Sprintf("%011d", rng.Int63n(100_000_000_000)),
		IFSC:        fmt.Sprintf("%s0%06d", bank.code, rng.Intn(1_000_000)),
		UPIID:       fmt.Sprintf("%s%d@oksbi", handle, 100+rng.Intn(900)),
		CardNumber:  fmt.Sprintf("4%015d", rng.Int63n(1_000_000_000_000_000)),
		CardExpiry:  fmt.Sprintf("%02d/%d", 1+rng.Intn(12), 26+rng.Intn(4)),
		CardCVV:     fmt.Sprintf("%03d", rng.Intn(1000)),
		OTP:         fmt.Sprintf("%04d", rng.Intn(10000)),
		Aadhaar:     fmt.Sprintf("%04d %04d %04d", rng.Intn(10000), rng.Intn(10000), rng.Intn(10000)),
		PAN:         fmt.Sprintf("%s%04d%s", randLetters(rng, 5), rng.Intn(10000), randLetters(rng, 1)),
		CustomerID:  fmt.Sprintf("CUST%07d", rng.Intn(10_000_000)),
	}
}

func randLetters(rng *rand.Rand, n int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// PromptSection formats the decoy data for the persona prompt.
func (b *BaitData) PromptSection() string {
	return fmt.Sprintf(`- Your Name: %s (age %d)
- Your Address: %s
- Your Phone: %s
- Bank Account: %s at %s (IFSC %s)
- UPI ID: %s
- Card: %s exp %s cvv %s
- OTP if asked: %s
- Aadhaar: %s | PAN: %s | Customer ID: %s`,
		b.Name, b.Age, b.Address, b.Phone,
		b.BankAccount, b.BankName, b.IFSC,
		b.UPIID,
		b.CardNumber, b.CardExpiry, b.CardCVV,
		b.OTP, b.Aadhaar, b.PAN, b.CustomerID)
}

// Values returns the normalized set of every decoy value, for filtering
// self-issued data out of merged intelligence.
func (b *BaitData) Values() map[string]struct{} {
	values := []string{
		b.Phone,
		b.BankAccount,
		b.IFSC,
		b.UPIID,
		b.CardNumber,
		b.OTP,
		strings.ReplaceAll(b.Aadhaar, " ", ""),
		b.PAN,
		b.CustomerID,
		b.Name,
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
