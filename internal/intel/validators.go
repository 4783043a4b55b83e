package intel

import (
	"net/url"
	"regexp"
	"strings"
)

// Known UPI handle suffixes. A handle@token with one of these tokens is
// always a UPI ID, never an email.
var upiProviders = []string{
	"ybl", "ibl", "axl", "apl", "upi", "paytm", "okaxis", "oksbi",
	"okicici", "okhdfcbank", "fbl", "yapl", "rbl", "idfcbank", "kotak",
	"airtel", "freecharge", "jupiteraxis",
}

// Indian bank names and abbreviations recognized in scam chatter.
var indianBankNames = []string{
	"State Bank of India", "SBI", "HDFC Bank", "HDFC", "ICICI Bank", "ICICI",
	"Axis Bank", "Punjab National Bank", "PNB", "Bank of Baroda", "BOB",
	"Bank of India", "BOI", "Canara Bank", "Union Bank", "Kotak Mahindra Bank",
	"Kotak", "IndusInd Bank", "Yes Bank", "IDBI Bank", "IDBI", "IDFC First Bank",
	"IDFC", "Federal Bank", "RBL Bank", "RBL", "Bandhan Bank", "UCO Bank", "UCO",
	"Indian Overseas Bank", "IOB", "Central Bank of India",
}

var bankAbbreviations = map[string]struct{}{
	"SBI": {}, "PNB": {}, "BOB": {}, "BOI": {}, "UCO": {}, "IOB": {},
	"HDFC": {}, "ICICI": {}, "IDBI": {}, "RBL": {}, "IDFC": {},
}

// URL shortener hosts commonly abused to mask phishing destinations.
var shortenerHosts = map[string]struct{}{
	"bit.ly": {}, "tinyurl.com": {}, "t.co": {}, "goo.gl": {}, "is.gd": {},
	"cutt.ly": {}, "rb.gy": {}, "shorturl.at": {}, "tiny.cc": {}, "ow.ly": {},
	"rebrand.ly": {},
}

// TLDs that are cheap to register and rarely host legitimate banking sites.
var suspiciousTLDs = []string{
	".xyz", ".top", ".tk", ".ml", ".ga", ".cf", ".gq", ".buzz", ".icu",
	".club", ".work", ".live", ".online", ".site", ".click",
}

// Keywords that make a non-bank domain look like a bank or verification page.
var phishingKeywords = []string{
	"kyc", "verify", "verification", "secure", "login", "signin", "update",
	"unblock", "refund", "reward", "prize", "lottery", "aadhaar", "pan-card",
	"netbanking", "bank",
}

var (
	ipHostPattern   = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
	digitsOnly      = regexp.MustCompile(`\D`)
	separators      = regexp.MustCompile(`[-\s]`)
	ifscPattern     = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiHandle       = regexp.MustCompile(`^[\w.-]+@[a-zA-Z]{2,15}$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z][A-Za-z\s.'-]+$`)
	btcAddrPattern  = regexp.MustCompile(`^(?:bc1[a-z0-9]{25,60}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`)
	ethAddrPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	nameStopWords   = map[string]struct{}{"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "bank": {}, "account": {}, "transfer": {}, "send": {}, "pay": {}}
)

// cleanNumber strips spaces and hyphens from a formatted number.
func cleanNumber(s string) string {
	return separators.ReplaceAllString(s, "")
}

// ValidPhone reports whether the value is an Indian mobile number: 10 digits
// starting 6-9, with an optional +91 / 91 country prefix.
func ValidPhone(number string) bool {
	clean := number
	if strings.HasPrefix(clean, "+91") {
		clean = clean[3:]
	} else if strings.HasPrefix(clean, "91") && (len(clean) == 11 || len(clean) == 12) {
		clean = clean[2:]
	}
	clean = digitsOnly.ReplaceAllString(clean, "")
	if len(clean) != 10 {
		return false
	}
	return clean[0] >= '6' && clean[0] <= '9'
}

// NormalizePhone reduces a valid phone to its bare 10 digits.
func NormalizePhone(number string) string {
	clean := digitsOnly.ReplaceAllString(number, "")
	if len(clean) == 12 && strings.HasPrefix(clean, "91") {
		clean = clean[2:]
	} else if len(clean) == 11 && strings.HasPrefix(clean, "91") {
		clean = clean[2:]
	}
	return clean
}

// looksLikePhone reports whether a digit string reads as a phone number and
// should therefore not be treated as a bank account.
func looksLikePhone(number string) bool {
	switch len(number) {
	case 10:
		return number[0] >= '6' && number[0] <= '9'
	case 11, 12:
		return strings.HasPrefix(number, "91") && number[2] >= '6' && number[2] <= '9'
	}
	return false
}

// ValidBankAccount reports whether the value is a plausible account number:
// 9-18 digits, not a repeated digit, not phone-shaped.
func ValidBankAccount(number string) bool {
	if len(number) < 9 || len(number) > 18 {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	uniform := true
	for i := 1; i < len(number); i++ {
		if number[i] != number[0] {
			uniform = false
			break
		}
	}
	if uniform {
		return false
	}
	return !looksLikePhone(number)
}

// ValidIFSC reports whether the value matches the IFSC format: four letters,
// a zero, six alphanumerics.
func ValidIFSC(code string) bool {
	return ifscPattern.MatchString(strings.ToUpper(code))
}

// ValidUPI reports whether the value is a handle@token payment handle. A dot
// inside the token after @ marks an email domain, not a UPI provider.
func ValidUPI(handle string) bool {
	at := strings.LastIndex(handle, "@")
	if at <= 0 || at == len(handle)-1 {
		return false
	}
	if strings.Contains(handle[at+1:], ".") {
		return false
	}
	return upiHandle.MatchString(handle)
}

// ValidEmail reports whether the value is an email address. The domain must
// contain a dot, which is what separates it from a UPI handle.
func ValidEmail(addr string) bool {
	if !emailPattern.MatchString(addr) {
		return false
	}
	return !isUPIProviderDomain(addr)
}

func isUPIProviderDomain(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])
	if i := strings.Index(domain, "."); i > 0 {
		domain = domain[:i]
	}
	for _, p := range upiProviders {
		if domain == p {
			return true
		}
	}
	return false
}

// ValidBeneficiaryName filters obvious non-names out of captured holder names.
func ValidBeneficiaryName(name string) bool {
	if len(name) < 2 || len(name) > 50 {
		return false
	}
	if !namePattern.MatchString(name) {
		return false
	}
	_, stop := nameStopWords[strings.ToLower(name)]
	return !stop
}

// ValidCryptoAddress reports whether the value is a Bitcoin or Ethereum
// address.
func ValidCryptoAddress(addr string) bool {
	return btcAddrPattern.MatchString(addr) || ethAddrPattern.MatchString(addr)
}

// SuspiciousURL reports whether a URL is worth keeping as a phishing lead:
// raw IP hosts, shortener domains, punycode, suspicious TLDs, or
// banking/verification keywords on a host that is not a real bank.
func SuspiciousURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	if ipHostPattern.MatchString(host) {
		return true
	}
	if _, ok := shortenerHosts[host]; ok {
		return true
	}
	if strings.Contains(host, "xn--") {
		return true
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}

	lower := strings.ToLower(raw)
	for _, kw := range phishingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeBankName standardizes abbreviations to uppercase and full names to
// title case. Abbreviations inside longer names ("HDFC Bank") stay uppercase.
func NormalizeBankName(name string) string {
	clean := strings.TrimSpace(name)
	if _, ok := bankAbbreviations[strings.ToUpper(clean)]; ok {
		return strings.ToUpper(clean)
	}
	words := strings.Fields(strings.ToLower(clean))
	for i, w := range words {
		if _, ok := bankAbbreviations[strings.ToUpper(w)]; ok {
			words[i] = strings.ToUpper(w)
		} else {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
