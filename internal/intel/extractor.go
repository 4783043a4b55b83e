package intel

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/stickynet/sticky-net/pkg/logging"
)

// Scan patterns find candidate values in raw text. They are deliberately
// loose; every hit still passes through the kind's validator before it is
// kept.
var (
	bankAccountScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{9,18}\b`),
		regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{0,6}\b`),
		regexp.MustCompile(`(?i)(?:a/c|account|acc)[\s:]*#?\s*(\d{9,18})`),
	}

	upiKnownProviderPattern = regexp.MustCompile(
		`(?i)\b[\w.-]+@(?:` + strings.Join(upiProviders, "|") + `)\b`)
	upiGenericScanPattern = regexp.MustCompile(`\b[\w.-]{3,}@[a-zA-Z]{2,15}\b`)

	phoneScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+91[-\s]?\d{10}\b`),
		regexp.MustCompile(`\b91[6-9]\d{9}\b`),
		regexp.MustCompile(`\b[6-9]\d{9}\b`),
		regexp.MustCompile(`\b[6-9]\d{2}[-\s]?\d{3}[-\s]?\d{4}\b`),
		regexp.MustCompile(`\b91[-\s]?[6-9]\d{2}[-\s]?\d{3}[-\s]?\d{4}\b`),
	}

	urlScanPattern   = regexp.MustCompile(`(?i)https?://[^\s<>"'{}|\\^` + "`" + `\[\]]+`)
	emailScanPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ifscScanPattern  = regexp.MustCompile(`(?i)\b[A-Z]{4}0[A-Z0-9]{6}\b`)

	bankNameScanPattern = buildBankNamePattern()

	beneficiaryScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)name\s+(?:will\s+)?(?:show|display|appear)s?\s+(?:as)?[\s:]*['"]?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3})`),
		regexp.MustCompile(`(?i)(?:account\s+holder|a/c\s+holder|beneficiary|payee)[\s:]+(?:name)?[\s:]*['"]?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3})`),
		regexp.MustCompile(`(?i)(?:transfer|send|pay)\s+(?:money\s+)?to\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})(?:\s*[-–]|\s+(?:sir|madam|ji|sahab))`),
		regexp.MustCompile(`(?i)['"]([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\s*[-–]\s*(?:KYC|Support|Officer|Manager|Executive|Agent|Verification)`),
		regexp.MustCompile(`(?i)(?:or\s+)?just\s+['"]([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})['"]`),
	}

	whatsappScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:whatsapp|wa|whats\s*app)[:\s]*(?:no\.?|number|num)?[:\s]*(?:\+91[-\s]*|91[-\s]+)?([6-9][-\s\d]{9,14})`),
		regexp.MustCompile(`(?i)(?:message|contact|call|reach)\s+(?:me\s+)?(?:on\s+)?whatsapp[:\s]*(?:\+91[-\s]*|91[-\s]+)?([6-9][-\s\d]{9,14})`),
		regexp.MustCompile(`(?i)(?:send|share)\s+(?:it\s+|screenshot\s+)?(?:to\s+|on\s+)?(?:my\s+)?whatsapp[:\s]*(?:\+91[-\s]*|91[-\s]+)?([6-9][-\s\d]{9,14})`),
		regexp.MustCompile(`(?i)wa\.me/(?:\+?91)?([6-9]\d{9})`),
	}

	cryptoScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:bc1[a-z0-9]{25,60}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`),
		regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
	}
)

func buildBankNamePattern() *regexp.Regexp {
	quoted := make([]string, len(indianBankNames))
	for i, name := range indianBankNames {
		quoted[i] = regexp.QuoteMeta(name)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// maxScanBytes bounds how much of a message the scanner walks. Patterns are
// linear-time, so this caps worst-case work per turn.
const maxScanBytes = 16384

// Extractor pulls structured intelligence out of message text with regex
// scanning and validates model-supplied candidates.
type Extractor struct {
	logger *logging.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger *logging.Logger) *Extractor {
	if logger == nil {
		panic("intel: logger is required")
	}
	return &Extractor{logger: logger.Component("extractor")}
}

// Extract scans text and returns validated, normalized intelligence.
func (e *Extractor) Extract(text string) *Intelligence {
	if len(text) > maxScanBytes {
		text = text[:maxScanBytes]
	}

	result := &Intelligence{}
	if strings.TrimSpace(text) == "" {
		return result
	}

	// Phones first: the bank-account pattern overlaps 10-digit numbers.
	result.PhoneNumbers = e.scanPhones(text)
	phoneSet := toSet(result.PhoneNumbers)

	result.BankAccounts = e.scanBankAccounts(text, phoneSet)
	result.UPIIDs = e.scanUPIIDs(text)
	result.Emails = e.scanEmails(text)
	result.PhishingLinks = e.scanURLs(text)
	result.BeneficiaryNames = e.scanBeneficiaryNames(text)
	result.BankNames = e.scanBankNames(text)
	result.IFSCCodes = e.scanIFSCCodes(text)
	result.WhatsAppNumbers = e.scanWhatsAppNumbers(text)
	result.CryptoAddresses = e.scanCryptoAddresses(text)

	if result.Count() > 0 {
		e.logger.Debug("regex extraction complete",
			"bank_accounts", len(result.BankAccounts),
			"upi_ids", len(result.UPIIDs),
			"phone_numbers", len(result.PhoneNumbers),
			"phishing_links", len(result.PhishingLinks),
			"emails", len(result.Emails),
			"whatsapp_numbers", len(result.WhatsAppNumbers),
		)
	}
	return result
}

// ExtractFromHistory scans a whole conversation's worth of text at once.
func (e *Extractor) ExtractFromHistory(texts []string) *Intelligence {
	return e.Extract(strings.Join(texts, " "))
}

func (e *Extractor) scanBankAccounts(text string, phones map[string]struct{}) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range bankAccountScanPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			raw := m[0]
			if len(m) > 1 && m[1] != "" {
				raw = m[1]
			}
			clean := cleanNumber(raw)
			if !ValidBankAccount(clean) {
				continue
			}
			if _, isPhone := phones[clean]; isPhone {
				continue
			}
			if _, ok := seen[clean]; !ok {
				seen[clean] = struct{}{}
				out = append(out, clean)
			}
		}
	}
	return out
}

func (e *Extractor) scanUPIIDs(text string) []string {
	var out []string
	seen := map[string]struct{}{}

	for _, m := range upiKnownProviderPattern.FindAllString(text, -1) {
		v := strings.ToLower(m)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	// Generic handle@token hits: a dot or hyphen right after the token means
	// the pattern clipped the front of an email domain, so skip it.
	for _, loc := range upiGenericScanPattern.FindAllStringIndex(text, -1) {
		if loc[1] < len(text) && (text[loc[1]] == '.' || text[loc[1]] == '-') {
			continue
		}
		v := strings.ToLower(text[loc[0]:loc[1]])
		if !ValidUPI(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func (e *Extractor) scanPhones(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range phoneScanPatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			if !ValidPhone(cleanNumber(m)) {
				continue
			}
			v := NormalizePhone(m)
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

func (e *Extractor) scanURLs(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range urlScanPattern.FindAllString(text, -1) {
		clean := strings.TrimRight(m, ".,;:!?)")
		if !SuspiciousURL(clean) {
			continue
		}
		if _, ok := seen[clean]; !ok {
			seen[clean] = struct{}{}
			out = append(out, clean)
		}
	}
	return out
}

func (e *Extractor) scanEmails(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range emailScanPattern.FindAllString(text, -1) {
		v := strings.ToLower(m)
		if !ValidEmail(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func (e *Extractor) scanBeneficiaryNames(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range beneficiaryScanPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			clean := strings.Trim(strings.TrimSpace(m[1]), `'"`)
			if !ValidBeneficiaryName(clean) {
				continue
			}
			v := titleCase(clean)
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

func (e *Extractor) scanBankNames(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range bankNameScanPattern.FindAllString(text, -1) {
		v := NormalizeBankName(m)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func (e *Extractor) scanIFSCCodes(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range ifscScanPattern.FindAllString(text, -1) {
		v := strings.ToUpper(m)
		if !ValidIFSC(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func (e *Extractor) scanWhatsAppNumbers(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range whatsappScanPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			clean := cleanNumber(m[1])
			if !ValidPhone(clean) {
				continue
			}
			v := NormalizePhone(clean)
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

func (e *Extractor) scanCryptoAddresses(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range cryptoScanPatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			if !ValidCryptoAddress(m) {
				continue
			}
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out
}

// ValidateCandidates cleans a model-supplied extraction: every value is run
// through its kind's validator and normalizer, and non-conforming values are
// dropped without error. Free-form links and other items keep the model's
// judgment but must at least parse.
func (e *Extractor) ValidateCandidates(c *Intelligence) *Intelligence {
	if c == nil {
		return &Intelligence{}
	}
	out := &Intelligence{}

	for _, v := range c.BankAccounts {
		clean := cleanNumber(strings.TrimSpace(v))
		if ValidBankAccount(clean) {
			out.BankAccounts = append(out.BankAccounts, clean)
		}
	}
	for _, v := range c.UPIIDs {
		clean := strings.ToLower(strings.TrimSpace(v))
		if ValidUPI(clean) {
			out.UPIIDs = append(out.UPIIDs, clean)
		}
	}
	for _, v := range c.PhoneNumbers {
		clean := cleanNumber(strings.TrimSpace(v))
		if ValidPhone(clean) {
			out.PhoneNumbers = append(out.PhoneNumbers, NormalizePhone(clean))
		}
	}
	for _, v := range c.WhatsAppNumbers {
		clean := cleanNumber(strings.TrimSpace(v))
		if ValidPhone(clean) {
			out.WhatsAppNumbers = append(out.WhatsAppNumbers, NormalizePhone(clean))
		}
	}
	for _, v := range c.Emails {
		clean := strings.ToLower(strings.TrimSpace(v))
		if ValidEmail(clean) {
			out.Emails = append(out.Emails, clean)
		}
	}
	for _, v := range c.PhishingLinks {
		clean := strings.TrimSpace(v)
		if u, err := url.Parse(clean); err == nil && u.Host != "" {
			out.PhishingLinks = append(out.PhishingLinks, clean)
		}
	}
	for _, v := range c.BeneficiaryNames {
		clean := strings.TrimSpace(v)
		if ValidBeneficiaryName(clean) {
			out.BeneficiaryNames = append(out.BeneficiaryNames, titleCase(clean))
		}
	}
	for _, v := range c.BankNames {
		clean := strings.TrimSpace(v)
		if clean != "" {
			out.BankNames = append(out.BankNames, NormalizeBankName(clean))
		}
	}
	for _, v := range c.IFSCCodes {
		clean := strings.ToUpper(strings.TrimSpace(v))
		if ValidIFSC(clean) {
			out.IFSCCodes = append(out.IFSCCodes, clean)
		}
	}
	for _, v := range c.CryptoAddresses {
		clean := strings.TrimSpace(v)
		if ValidCryptoAddress(clean) {
			out.CryptoAddresses = append(out.CryptoAddresses, clean)
		}
	}
	for _, item := range c.Other {
		if strings.TrimSpace(item.Label) != "" && strings.TrimSpace(item.Value) != "" {
			out.Other = append(out.Other, item)
		}
	}
	return out
}

// FilterSelfIssued removes values the honeypot itself handed out as bait, so
// the report only carries what the counterpart disclosed. Matching is on
// normalized values.
func FilterSelfIssued(in *Intelligence, bait map[string]struct{}) *Intelligence {
	if in == nil || len(bait) == 0 {
		return in
	}
	keep := func(values []string) []string {
		var out []string
		for _, v := range values {
			if _, own := bait[strings.ToLower(v)]; !own {
				out = append(out, v)
			}
		}
		return out
	}
	return &Intelligence{
		BankAccounts:     keep(in.BankAccounts),
		UPIIDs:           keep(in.UPIIDs),
		PhoneNumbers:     keep(in.PhoneNumbers),
		WhatsAppNumbers:  keep(in.WhatsAppNumbers),
		Emails:           keep(in.Emails),
		PhishingLinks:    keep(in.PhishingLinks),
		BeneficiaryNames: keep(in.BeneficiaryNames),
		BankNames:        keep(in.BankNames),
		IFSCCodes:        keep(in.IFSCCodes),
		CryptoAddresses:  keep(in.CryptoAddresses),
		Other:            in.Other,
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
