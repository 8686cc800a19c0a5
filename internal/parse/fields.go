// Package parse turns raw OCR text into structured receipt fields using
// layout heuristics and pattern tables. Everything here is a pure
// function: same text in, same fields out. A field the heuristics cannot
// find is left absent, never an error.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields holds the candidate values extracted from one receipt.
type Fields struct {
	MerchantName string
	Items        []Item
	Subtotal     *float64
	TaxAmount    *float64
	TotalAmount  *float64
	// ReceiptDate is YYYY-MM-DD when a known format parsed, otherwise the
	// raw matched substring; nil when no date-looking token was found.
	ReceiptDate *string
}

// Item is a single line item. Quantity defaults to 1; receipts that print
// quantities fold them into the name.
type Item struct {
	Name     string
	Quantity float64
	Price    float64
}

// amountPat matches an optionally currency-prefixed, thousands-separated
// amount. Line items accept bare integers; the keyword search below
// requires two decimals to avoid grabbing percentages.
const amountPat = `[₹$]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`

var (
	totalKeywords    = []string{"total", "grand total", "amount due", "total amount", "net amount"}
	taxKeywords      = []string{"tax", "gst", "cgst", "sgst", "vat", "igst"}
	subtotalKeywords = []string{"subtotal", "sub total", "sub-total", "amount before tax"}

	// merchant stoplist: layout words that mark address/contact/date lines
	merchantStoplist = []string{"road", "street", "date", "time", "tel"}

	reItem = regexp.MustCompile(`^(.+?)\s+` + amountPat + `\s*$`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`),
		regexp.MustCompile(`(?i)\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4}`),
	}

	// tried in order; the first layout that parses wins
	dateLayouts = []string{
		"2/1/2006", "2-1-2006",
		"2/1/06", "2-1-06",
		"2 Jan 2006", "2 January 2006",
	}

	keywordAmountRes = map[string]*regexp.Regexp{}
)

func init() {
	all := make([]string, 0, len(totalKeywords)+len(taxKeywords)+len(subtotalKeywords))
	all = append(all, totalKeywords...)
	all = append(all, taxKeywords...)
	all = append(all, subtotalKeywords...)
	for _, kw := range all {
		// keyword, then anything on the same line, then a two-decimal amount
		keywordAmountRes[kw] = regexp.MustCompile(
			regexp.QuoteMeta(kw) + `[^\n]*?[₹$]?\s*(\d{1,3}(?:,\d{3})*\.\d{2})`)
	}
}

// ParseReceipt extracts structured fields from raw OCR text.
func ParseReceipt(text string) Fields {
	lines := splitLines(text)

	return Fields{
		MerchantName: extractMerchant(lines),
		Items:        extractItems(lines),
		Subtotal:     extractAmount(text, subtotalKeywords),
		TaxAmount:    extractAmount(text, taxKeywords),
		TotalAmount:  extractAmount(text, totalKeywords),
		ReceiptDate:  extractDate(text),
	}
}

func splitLines(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// extractMerchant scans at most the first 3 lines, skipping anything that
// looks like an address, contact, or date line, or that is mostly digits.
func extractMerchant(lines []string) string {
	n := min(3, len(lines))
	for _, line := range lines[:n] {
		lower := strings.ToLower(line)
		if containsAny(lower, merchantStoplist) {
			continue
		}
		if digitCount(line)*2 > len(line) {
			continue
		}
		if len(line) > 2 {
			return line
		}
	}
	return ""
}

// extractItems matches "name, trailing amount" lines, skipping any line
// that carries a total/tax/subtotal keyword.
func extractItems(lines []string) []Item {
	skip := make([]string, 0, len(totalKeywords)+len(taxKeywords)+len(subtotalKeywords))
	skip = append(skip, totalKeywords...)
	skip = append(skip, taxKeywords...)
	skip = append(skip, subtotalKeywords...)

	var items []Item
	for _, line := range lines {
		if containsAny(strings.ToLower(line), skip) {
			continue
		}
		m := reItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		price, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
		if err != nil {
			continue
		}
		if price > 0 && len(name) > 1 {
			items = append(items, Item{Name: name, Quantity: 1, Price: price})
		}
	}
	return items
}

// extractAmount finds the first amount in the vicinity of any of the
// keywords, scanning keywords in the listed order.
func extractAmount(text string, keywords []string) *float64 {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		m := keywordAmountRes[kw].FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// extractDate finds the first date-looking token and normalizes it to
// YYYY-MM-DD. When the token matches no known layout it is returned
// verbatim so the caller still sees what was printed on the receipt.
func extractDate(text string) *string {
	for _, re := range datePatterns {
		raw := re.FindString(text)
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				iso := t.Format("2006-01-02")
				return &iso
			}
		}
		return &raw
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
