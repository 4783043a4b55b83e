package intel

// Kind identifies a category of extracted intelligence.
type Kind string

const (
	KindBankAccounts     Kind = "bank_accounts"
	KindUPIIDs           Kind = "upi_ids"
	KindPhoneNumbers     Kind = "phone_numbers"
	KindWhatsAppNumbers  Kind = "whatsapp_numbers"
	KindEmails           Kind = "emails"
	KindPhishingLinks    Kind = "phishing_links"
	KindBeneficiaryNames Kind = "beneficiary_names"
	KindBankNames        Kind = "bank_names"
	KindIFSCCodes        Kind = "ifsc_codes"
	KindCryptoAddresses  Kind = "crypto_addresses"
)

// OtherItem is a free-form piece of intelligence the model surfaced that does
// not fit a structured kind.
type OtherItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Intelligence holds everything extracted from a conversation, grouped by
// kind. Lists are deduplicated, normalized values.
type Intelligence struct {
	BankAccounts     []string    `json:"bankAccounts"`
	UPIIDs           []string    `json:"upiIds"`
	PhoneNumbers     []string    `json:"phoneNumbers"`
	WhatsAppNumbers  []string    `json:"whatsappNumbers"`
	Emails           []string    `json:"emails"`
	PhishingLinks    []string    `json:"phishingLinks"`
	BeneficiaryNames []string    `json:"beneficiaryNames"`
	BankNames        []string    `json:"bankNames"`
	IFSCCodes        []string    `json:"ifscCodes"`
	CryptoAddresses  []string    `json:"cryptoAddresses"`
	Other            []OtherItem `json:"otherCriticalInfo"`
}

// AllKinds lists the structured kinds in a stable order.
func AllKinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ByKind returns the values stored for a structured kind.
func (in *Intelligence) ByKind(k Kind) []string {
	switch k {
	case KindBankAccounts:
		return in.BankAccounts
	case KindUPIIDs:
		return in.UPIIDs
	case KindPhoneNumbers:
		return in.PhoneNumbers
	case KindWhatsAppNumbers:
		return in.WhatsAppNumbers
	case KindEmails:
		return in.Emails
	case KindPhishingLinks:
		return in.PhishingLinks
	case KindBeneficiaryNames:
		return in.BeneficiaryNames
	case KindBankNames:
		return in.BankNames
	case KindIFSCCodes:
		return in.IFSCCodes
	case KindCryptoAddresses:
		return in.CryptoAddresses
	}
	return nil
}

// Has reports whether at least one value of the kind has been captured.
func (in *Intelligence) Has(k Kind) bool {
	return len(in.ByKind(k)) > 0
}

// HasPaymentIdentifier reports whether a route for moving money was captured.
func (in *Intelligence) HasPaymentIdentifier() bool {
	return in.Has(KindBankAccounts) || in.Has(KindUPIIDs) || in.Has(KindCryptoAddresses)
}

// HasContactIdentifier reports whether a way to reach the counterpart was
// captured.
func (in *Intelligence) HasContactIdentifier() bool {
	return in.Has(KindPhoneNumbers) || in.Has(KindWhatsAppNumbers)
}

// Count returns the total number of captured values across all kinds.
func (in *Intelligence) Count() int {
	n := len(in.Other)
	for _, k := range allKinds {
		n += len(in.ByKind(k))
	}
	return n
}

var allKinds = []Kind{
	KindBankAccounts,
	KindUPIIDs,
	KindPhoneNumbers,
	KindWhatsAppNumbers,
	KindEmails,
	KindPhishingLinks,
	KindBeneficiaryNames,
	KindBankNames,
	KindIFSCCodes,
	KindCryptoAddresses,
}

// Merge folds other into in as a per-kind set union. Existing values are never
// removed; new values are appended in first-seen order.
func (in *Intelligence) Merge(other *Intelligence) {
	if other == nil {
		return
	}
	in.BankAccounts = unionStrings(in.BankAccounts, other.BankAccounts)
	in.UPIIDs = unionStrings(in.UPIIDs, other.UPIIDs)
	in.PhoneNumbers = unionStrings(in.PhoneNumbers, other.PhoneNumbers)
	in.WhatsAppNumbers = unionStrings(in.WhatsAppNumbers, other.WhatsAppNumbers)
	in.Emails = unionStrings(in.Emails, other.Emails)
	in.PhishingLinks = unionStrings(in.PhishingLinks, other.PhishingLinks)
	in.BeneficiaryNames = unionStrings(in.BeneficiaryNames, other.BeneficiaryNames)
	in.BankNames = unionStrings(in.BankNames, other.BankNames)
	in.IFSCCodes = unionStrings(in.IFSCCodes, other.IFSCCodes)
	in.CryptoAddresses = unionStrings(in.CryptoAddresses, other.CryptoAddresses)

	seen := make(map[OtherItem]struct{}, len(in.Other))
	for _, item := range in.Other {
		seen[item] = struct{}{}
	}
	for _, item := range other.Other {
		if _, ok := seen[item]; !ok {
			in.Other = append(in.Other, item)
			seen[item] = struct{}{}
		}
	}
}

func unionStrings(dst, src []string) []string {
	if len(src) == 0 {
		return dst
	}
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range src {
		if _, ok := seen[v]; !ok {
			dst = append(dst, v)
			seen[v] = struct{}{}
		}
	}
	return dst
}
