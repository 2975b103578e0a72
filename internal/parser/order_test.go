package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTotal(t *testing.T) {
	p := NewOrderParser()

	tests := []struct {
		name       string
		candidates []string
		expected   float64
	}{
		{
			name:       "Last total wins over subtotal",
			candidates: []string{"Subtotal 50 SAR", "Total 74.00 SAR"},
			expected:   74.0,
		},
		{
			name:       "Integer total",
			candidates: []string{"Total 148 SAR"},
			expected:   148.0,
		},
		{
			name:       "Later candidate preferred",
			candidates: []string{"Total 10 SAR", "Total 25.50 SAR"},
			expected:   25.5,
		},
		{
			name:       "Subtotal only yields zero",
			candidates: []string{"Subtotal 50 SAR"},
			expected:   0,
		},
		{
			name:       "Currency without digits ignored",
			candidates: []string{"SAR", "Total 12 SAR"},
			expected:   12.0,
		},
		{
			name:       "Digits without currency ignored",
			candidates: []string{"Order 42", "Total 30 SAR"},
			expected:   30.0,
		},
		{
			name:       "Thousands separator stripped",
			candidates: []string{"Total 1,250 SAR"},
			expected:   1250.0,
		},
		{
			name:       "Last numeric token taken",
			candidates: []string{"VAT 15% included, Total 57.50 SAR"},
			expected:   57.5,
		},
		{
			name:       "No candidates",
			candidates: nil,
			expected:   0,
		},
		{
			name:       "Empty strings only",
			candidates: []string{"", "  "},
			expected:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, p.ParseTotal(tt.candidates), 0.001)
		})
	}
}

func TestParseItems(t *testing.T) {
	p := NewOrderParser()

	t.Run("Quantity line followed by name and price", func(t *testing.T) {
		items := p.ParseItems([]string{"2x\nCheese Burger\n37 SAR"})

		require.Len(t, items, 1)
		assert.Equal(t, "Cheese Burger", items[0].Name)
		assert.Equal(t, 2, items[0].Quantity)
		require.NotNil(t, items[0].Price)
		assert.InDelta(t, 37.0, *items[0].Price, 0.001)
	})

	t.Run("Summary line is not a quantity", func(t *testing.T) {
		items := p.ParseItems([]string{"3 items\nCheese Burger"})
		assert.Empty(t, items)
	})

	t.Run("Quantity with spaces", func(t *testing.T) {
		items := p.ParseItems([]string{"2 x\nShawarma Plate"})

		require.Len(t, items, 1)
		assert.Equal(t, "Shawarma Plate", items[0].Name)
		assert.Equal(t, 2, items[0].Quantity)
		assert.Nil(t, items[0].Price)
	})

	t.Run("Name lookahead skips labels and chrome", func(t *testing.T) {
		items := p.ParseItems([]string{
			"1x\nBranch: Riyadh\nSAR 20\n#GD7G-GAWP\n15 mins\nSubtotal\nChicken Wrap",
		})

		require.Len(t, items, 1)
		assert.Equal(t, "Chicken Wrap", items[0].Name)
		assert.Equal(t, 1, items[0].Quantity)
	})

	t.Run("Quantity line without a following name emits nothing", func(t *testing.T) {
		items := p.ParseItems([]string{"2x\nSubtotal\nTotal 40 SAR"})
		assert.Empty(t, items)
	})

	t.Run("Duplicate rows collapse", func(t *testing.T) {
		items := p.ParseItems([]string{
			"2x\nCheese Burger\n37 SAR",
			"2x\nCheese Burger\n37 SAR",
		})
		assert.Len(t, items, 1)
	})

	t.Run("Same name different quantity kept", func(t *testing.T) {
		items := p.ParseItems([]string{
			"1x\nCheese Burger",
			"2x\nCheese Burger",
		})
		assert.Len(t, items, 2)
	})

	t.Run("Block price applies to every item in the block", func(t *testing.T) {
		items := p.ParseItems([]string{"12.50 SAR\n1x\nFries\n2x\nCola"})

		require.Len(t, items, 2)
		require.NotNil(t, items[0].Price)
		require.NotNil(t, items[1].Price)
		assert.InDelta(t, 12.5, *items[0].Price, 0.001)
		assert.InDelta(t, 12.5, *items[1].Price, 0.001)
	})

	t.Run("Empty blocks ignored", func(t *testing.T) {
		items := p.ParseItems([]string{"", "   \n  "})
		assert.Empty(t, items)
	})
}

func TestIsQuantityLine(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
	}{
		{"2x", true},
		{"2 x", true},
		{"10x", true},
		{"3 items", false},
		{"1 item", false},
		{"x", false},
		{"2y", false},
		{"ax", false},
		{"", false},
		{"  2X  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, isQuantityLine(tt.line))
		})
	}
}

func TestCardLabel(t *testing.T) {
	p := NewOrderParser()

	t.Run("Heading paragraph preferred", func(t *testing.T) {
		html := `<div><p class="heading20_fe6KU">ignored</p><p class="heading16_aBcDe">abdelrahman</p></div>`
		assert.Equal(t, "abdelrahman", p.CardLabel(html))
	})

	t.Run("Falls back to first text line", func(t *testing.T) {
		html := "<div><span>Walk-in customer\nsecond line</span></div>"
		assert.Equal(t, "Walk-in customer", p.CardLabel(html))
	})

	t.Run("Placeholder when card is empty", func(t *testing.T) {
		assert.Equal(t, cardLabelFallback, p.CardLabel("<div></div>"))
	})
}

func TestOrderKey(t *testing.T) {
	p := NewOrderParser()

	t.Run("Key paragraph found", func(t *testing.T) {
		html := `<div class="flex flex-col">
			<p class="heading20_fe6KU">abdelrahman</p>
			<p class="element14_McQXd">#GD7G-GAWP</p>
		</div>`
		assert.Equal(t, "#GD7G-GAWP", p.OrderKey(html))
	})

	t.Run("Timestamp paragraph with same class prefix skipped", func(t *testing.T) {
		html := `<div>
			<p class="element14_McQXd">12:30 PM</p>
			<p class="element14_McQXd">#AB12-CD34</p>
		</div>`
		assert.Equal(t, "#AB12-CD34", p.OrderKey(html))
	})

	t.Run("Missing key yields empty string", func(t *testing.T) {
		html := `<div><p class="element14_McQXd">12:30 PM</p></div>`
		assert.Empty(t, p.OrderKey(html))
	})
}
