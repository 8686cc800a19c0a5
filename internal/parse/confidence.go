package parse

// Confidence scoring weights. The score is a completeness proxy over the
// extracted fields, not a calibrated probability.
const (
	maxScore      = 5.0
	merchantScore = 1.0
	totalScore    = 1.5
	perItemScore  = 0.3
	itemsCap      = 1.5
	dateScore     = 0.5
	taxLineScore  = 0.5 // subtotal or tax, either one
)

// Score reduces extracted fields to a confidence in [0, 1].
func Score(f Fields) float64 {
	score := 0.0

	if f.MerchantName != "" {
		score += merchantScore
	}
	if f.TotalAmount != nil {
		score += totalScore
	}
	if n := len(f.Items); n > 0 {
		score += min(float64(n)*perItemScore, itemsCap)
	}
	if f.ReceiptDate != nil {
		score += dateScore
	}
	if f.Subtotal != nil || f.TaxAmount != nil {
		score += taxLineScore
	}

	return min(score/maxScore, 1.0)
}
