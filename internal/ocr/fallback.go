package ocr

// FallbackReceiptText is the canonical receipt returned when the OCR
// engine is unavailable. It exercises every field the parser knows about
// and keeps offline runs deterministic.
const FallbackReceiptText = `
STARBUCKS COFFEE
123 MG Road, Bangalore

Date: 15/01/2026

Caffe Latte Grande     ₹285.00
Chocolate Muffin       ₹165.00
Bottled Water          ₹45.00

Subtotal:              ₹495.00
CGST (2.5%):           ₹12.38
SGST (2.5%):           ₹12.38

TOTAL:                 ₹519.76

Thank you for visiting!
`
