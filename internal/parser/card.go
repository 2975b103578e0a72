package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const cardLabelFallback = "[Card label not found]"

// CardLabel extracts the display label from an order card's HTML. The
// dashboard renders it as a heading paragraph; when none is present the
// first non-empty text line of the card is used instead.
func (p *OrderParser) CardLabel(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cardLabelFallback
	}

	var label string
	doc.Find("p[class*='heading16_'], p[class*='heading14_']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			label = text
			return false
		}
		return true
	})
	if label != "" {
		return label
	}

	for _, line := range splitLines(doc.Text()) {
		return line
	}
	return cardLabelFallback
}

// OrderKey extracts the unique order identifier from a card's HTML. The
// identifier paragraph shares its class prefix with the card timestamp,
// so only text starting with '#' counts. Returns "" when the card
// carries no key; the caller generates a fallback.
func (p *OrderParser) OrderKey(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var key string
	doc.Find("p[class*='element14_']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, "#") {
			key = text
			return false
		}
		return true
	})
	return key
}
