package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendscan/internal/ocr"
)

func TestParseReceiptFallbackText(t *testing.T) {
	f := ParseReceipt(ocr.FallbackReceiptText)

	assert.Equal(t, "STARBUCKS COFFEE", f.MerchantName)

	require.Len(t, f.Items, 3)
	assert.Equal(t, "Caffe Latte Grande", f.Items[0].Name)
	assert.Equal(t, 285.00, f.Items[0].Price)
	assert.Equal(t, "Chocolate Muffin", f.Items[1].Name)
	assert.Equal(t, 165.00, f.Items[1].Price)
	assert.Equal(t, "Bottled Water", f.Items[2].Name)
	assert.Equal(t, 45.00, f.Items[2].Price)
	for _, it := range f.Items {
		assert.Equal(t, 1.0, it.Quantity)
	}

	require.NotNil(t, f.Subtotal)
	assert.Equal(t, 495.00, *f.Subtotal)
	require.NotNil(t, f.TaxAmount)
	assert.Equal(t, 12.38, *f.TaxAmount)
	require.NotNil(t, f.TotalAmount)

	require.NotNil(t, f.ReceiptDate)
	assert.Equal(t, "2026-01-15", *f.ReceiptDate)
}

func TestParseReceiptDeterministic(t *testing.T) {
	a := ParseReceipt(ocr.FallbackReceiptText)
	b := ParseReceipt(ocr.FallbackReceiptText)
	assert.Equal(t, a, b)
}

func TestExtractMerchantSkipsAddressAndNumericLines(t *testing.T) {
	text := "Date: 01/02/2025\n555-1234\nWALMART\nMilk 3.50\n"
	f := ParseReceipt(text)
	assert.Equal(t, "WALMART", f.MerchantName)
}

func TestExtractMerchantOnlyScansTopLines(t *testing.T) {
	// merchant-looking line beyond the third is never picked up
	text := "123 Main Road\n456 Side Street\nTel: 999\nACME STORE\n"
	f := ParseReceipt(text)
	assert.Equal(t, "", f.MerchantName)
}

func TestExtractItemsSkipsSummaryAndJunkLines(t *testing.T) {
	text := `STORE
Coffee 120.00
Subtotal: 120.00
Tax: 6.00
Total: 126.00
X 5.00
Freebie 0.00
`
	f := ParseReceipt(text)
	require.Len(t, f.Items, 1)
	assert.Equal(t, "Coffee", f.Items[0].Name)
	assert.Equal(t, 120.00, f.Items[0].Price)
}

func TestExtractItemsParsesThousandsSeparators(t *testing.T) {
	f := ParseReceipt("STORE\nLaptop Stand $1,299.00\nTotal: 1,299.00\n")
	require.Len(t, f.Items, 1)
	assert.Equal(t, 1299.00, f.Items[0].Price)
}

func TestExtractAmountRequiresTwoDecimals(t *testing.T) {
	// the percentage in the tax label must not be read as the amount
	f := ParseReceipt("STORE\nCGST (2.5%): 12.38\n")
	require.NotNil(t, f.TaxAmount)
	assert.Equal(t, 12.38, *f.TaxAmount)
}

func TestExtractDateFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"slash full year", "Date: 15/01/2026", "2026-01-15"},
		{"dash full year", "Date: 15-01-2026", "2026-01-15"},
		{"slash short year", "Date: 15/01/26", "2026-01-15"},
		{"dash short year", "Date: 15-01-26", "2026-01-15"},
		{"month name", "Date: 5 Jan 2026", "2026-01-05"},
		{"month name full", "Date: 5 January 2026", "2026-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ParseReceipt(tt.text)
			require.NotNil(t, f.ReceiptDate)
			assert.Equal(t, tt.want, *f.ReceiptDate)
		})
	}
}

func TestExtractDateUnparseableKeptVerbatim(t *testing.T) {
	f := ParseReceipt("Date: 99/99/2026")
	require.NotNil(t, f.ReceiptDate)
	assert.Equal(t, "99/99/2026", *f.ReceiptDate)
}

func TestExtractDateAbsent(t *testing.T) {
	f := ParseReceipt("STORE\nCoffee 5.00\n")
	assert.Nil(t, f.ReceiptDate)
}
