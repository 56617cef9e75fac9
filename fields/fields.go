// Package fields scrapes common key values (contacts, identifiers, money
// and dates) from assembled document text.
//
// Extraction is best effort: it never fails, and a document without any
// recognizable value yields an empty map.
package fields

import (
	"encoding/json"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Field names.
const (
	Email         = "email"
	Phone         = "phone"
	URL           = "url"
	IBAN          = "iban"
	Date          = "date"
	Amount        = "amount"
	InvoiceNumber = "invoice_number"
	Total         = "total"
)

// MaxPerKey caps the number of values kept per field.
const MaxPerKey = 10

const currency = `[$\x{20AC}\x{A3}\x{A5}]`

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	reURL   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"'()\[\]]+`)
	reIBAN  = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,3})?\b`)
	rePhone = regexp.MustCompile(`(?:\+\d{1,3}[ .\-]?)?(?:\(\d{1,4}\)[ .\-]?)?\d{2,4}(?:[ .\-]\d{2,4}){2,4}`)

	months = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`
	reDate = regexp.MustCompile(`(?i)\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{1,2}\s+` +
		months + `\s+\d{4}|` + months + `\s+\d{1,2},?\s+\d{4})\b`)

	reAmount = regexp.MustCompile(currency + `\s?\d{1,3}(?:[.,' ]?\d{3})*(?:[.,]\d{2})?` +
		`|\b\d{1,3}(?:[.,' ]?\d{3})*[.,]\d{2}\s?(?:` + currency + `|EUR|USD|GBP|CHF)`)

	reInvoice = regexp.MustCompile(`(?i)\b(?:invoice|inv|facture|rechnung)\s*(?:no\.?|number|nr\.?|#|n\x{B0})?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]{2,})`)
	reTotal   = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+due|amount\s+due|total)\b\s*[:=]?\s*(` +
		currency + `?\s?\d[\d.,' ]*\d(?:\s?(?:` + currency + `|EUR|USD|GBP|CHF))?)`)

	reSpace = regexp.MustCompile(`\s+`)
)

// Keys returns the field names in presentation order.
func Keys() []string {
	return []string{Email, Phone, URL, IBAN, Date, Amount, InvoiceNumber, Total}
}

// Extract scans text and returns the values found per field, deduplicated
// and in order of first appearance. Fields without values are absent.
func Extract(text string) map[string][]string {
	out := make(map[string][]string)
	if strings.TrimSpace(text) == "" {
		return out
	}

	add := func(key, v string) {
		v = strings.TrimSpace(reSpace.ReplaceAllString(v, " "))
		if v == "" || len(out[key]) >= MaxPerKey {
			return
		}
		for _, seen := range out[key] {
			if seen == v {
				return
			}
		}
		out[key] = append(out[key], v)
	}

	// Matched identifiers are masked so their digits are not read again
	// as phone numbers.
	masked := []byte(text)
	mask := func(locs [][]int) {
		for _, loc := range locs {
			for i := loc[0]; i < loc[1]; i++ {
				masked[i] = ' '
			}
		}
	}

	for _, loc := range reEmail.FindAllStringIndex(text, -1) {
		add(Email, text[loc[0]:loc[1]])
		mask([][]int{loc})
	}
	for _, loc := range reURL.FindAllStringIndex(text, -1) {
		add(URL, strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?"))
		mask([][]int{loc})
	}
	for _, loc := range reIBAN.FindAllStringIndex(text, -1) {
		if iban := strings.ReplaceAll(text[loc[0]:loc[1]], " ", ""); validIBAN(iban) {
			add(IBAN, iban)
			mask([][]int{loc})
		}
	}
	dateLocs := reDate.FindAllStringIndex(text, -1)
	for _, loc := range dateLocs {
		add(Date, text[loc[0]:loc[1]])
	}
	mask(dateLocs)
	for _, m := range rePhone.FindAllString(string(masked), -1) {
		if isPhone(m) {
			add(Phone, m)
		}
	}
	for _, m := range reAmount.FindAllString(text, -1) {
		add(Amount, m)
	}
	for _, m := range reInvoice.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			add(InvoiceNumber, m[1])
		}
	}
	for _, m := range reTotal.FindAllStringSubmatch(text, -1) {
		add(Total, m[1])
	}
	return out
}

// isPhone rejects digit runs that are more plausibly dates or amounts.
func isPhone(s string) bool {
	if reDate.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// validIBAN applies the ISO 13616 mod-97 check.
func validIBAN(s string) bool {
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	rearranged := s[4:] + s[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteString(strconv.Itoa(int(r-'A') + 10))
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// JSON renders fields as a JSON object.
func JSON(fields map[string][]string) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Lines renders fields one per line as "key: v1, v2" in Keys order.
func Lines(fields map[string][]string) string {
	var lines []string
	for _, k := range Keys() {
		if vs := fields[k]; len(vs) > 0 {
			lines = append(lines, k+": "+strings.Join(vs, ", "))
		}
	}
	return strings.Join(lines, "\n")
}
