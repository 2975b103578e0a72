package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clarastars/zyda-order-sync/internal/models"
)

const currencyMarker = "SAR"

// Labels and UI chrome that must never be mistaken for an item name.
var skipTerms = []string{
	"subtotal",
	"total",
	"payment methods",
	"print",
	"english",
	"عربي",
	"thermal",
	"a4",
	"print receipt",
	"cancel order",
	"sort by",
	"creation time",
	"export",
	"accepted",
	"assigned to",
	"order",
}

// OrderParser turns the raw text captured from an opened order view into
// structured order fields. The dashboard renders everything as loosely
// formatted text, so all extraction here is best-effort line scanning.
type OrderParser struct {
	numberPattern *regexp.Regexp
	pricePattern  *regexp.Regexp
	digitPattern  *regexp.Regexp
}

func NewOrderParser() *OrderParser {
	return &OrderParser{
		numberPattern: regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`),
		pricePattern:  regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*` + currencyMarker),
		digitPattern:  regexp.MustCompile(`\d`),
	}
}

// ParseTotal picks the order total out of candidate texts. A candidate
// qualifies only when it carries the currency marker and a digit and is
// not a subtotal row; the last qualifying candidate wins because later
// rows in the detail view hold the final total, not the breakdown.
func (p *OrderParser) ParseTotal(candidates []string) float64 {
	var winner string
	for _, text := range candidates {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if !strings.Contains(text, currencyMarker) {
			continue
		}
		if !p.digitPattern.MatchString(text) {
			continue
		}
		if strings.Contains(strings.ToLower(text), "subtotal") {
			continue
		}
		winner = text
	}
	return p.parseAmount(winner)
}

// parseAmount extracts the last numeric token and parses it, stripping
// commas used as thousands separators. Anything unparseable yields 0.0.
func (p *OrderParser) parseAmount(text string) float64 {
	if text == "" {
		return 0
	}
	matches := p.numberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0
	}
	normalized := strings.ReplaceAll(matches[len(matches)-1], ",", "")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}
	return value
}

// ParseItems extracts line items from the raw text blocks of an order
// view. Each block is scanned for quantity lines ("2x") followed by the
// first line that looks like a dish name. The first price found in a
// block is attached to every item parsed from that block. Repeated
// (quantity, name) pairs within one order collapse to a single entry.
func (p *OrderParser) ParseItems(blocks []string) []models.OrderItem {
	var items []models.OrderItem
	seen := make(map[[2]string]struct{})

	for _, block := range blocks {
		lines := splitLines(block)
		if len(lines) == 0 {
			continue
		}

		price := p.blockPrice(lines)

		for i, line := range lines {
			if !isQuantityLine(line) {
				continue
			}
			quantity := strings.ReplaceAll(line, " ", "")
			name := nextItemName(lines, i+1)
			if name == "" {
				continue
			}
			key := [2]string{quantity, name}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, models.OrderItem{
				Name:     name,
				Quantity: p.parseQuantity(quantity),
				Price:    price,
			})
		}
	}

	return items
}

// blockPrice finds the first "<number> SAR" occurrence in a block.
func (p *OrderParser) blockPrice(lines []string) *float64 {
	for _, line := range lines {
		matches := p.pricePattern.FindStringSubmatch(line)
		if len(matches) < 2 {
			continue
		}
		normalized := strings.ReplaceAll(matches[1], ",", "")
		if value, err := strconv.ParseFloat(normalized, 64); err == nil {
			return &value
		}
	}
	return nil
}

// parseQuantity turns a token like "2x" into 2. Defaults to 1 when the
// digits cannot be recovered.
func (p *OrderParser) parseQuantity(token string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, token)
	if digits == "" {
		return 1
	}
	quantity, err := strconv.Atoi(digits)
	if err != nil || quantity == 0 {
		return 1
	}
	return quantity
}

// isQuantityLine reports whether a line is a quantity token such as
// "2x". Summary lines like "3 items" must not match.
func isQuantityLine(line string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(line)), " ", "")
	if normalized == "" {
		return false
	}
	if strings.HasSuffix(normalized, "item") || strings.HasSuffix(normalized, "items") {
		return false
	}
	if !strings.HasSuffix(normalized, "x") {
		return false
	}
	prefix := strings.TrimSuffix(normalized, "x")
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// nextItemName returns the first line at or after start that qualifies
// as an item name, or "" when the block ends without one.
func nextItemName(lines []string, start int) string {
	for idx := start; idx < len(lines); idx++ {
		candidate := strings.TrimSpace(lines[idx])
		if candidate == "" {
			continue
		}
		normalized := strings.ToLower(candidate)
		if strings.Contains(candidate, ":") {
			continue
		}
		if strings.HasPrefix(normalized, strings.ToLower(currencyMarker)) {
			continue
		}
		if strings.HasPrefix(normalized, "#") {
			continue
		}
		if containsSkipTerm(normalized) {
			continue
		}
		if strings.HasSuffix(normalized, "mins") || strings.HasSuffix(normalized, "min") {
			continue
		}
		if isQuantityLine(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

func containsSkipTerm(normalized string) bool {
	for _, term := range skipTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

func splitLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
