// Package pricing computes document prices from token volumes, per-kind
// base rates and per-model multipliers. The transaction pricer is
// authoritative for billing; Quote is a pre-generation estimate and
// advisory only.
package pricing

import "math"

// Rates is one price-list row for a document kind.
type Rates struct {
	Kind                 string
	FixedPrice           float64
	RateInPer1K          float64
	RateOutPer1K         float64
	ComplexityMultiplier float64
	Description          string
}

// Breakdown is the per-document pricing snapshot archived with each
// generated document.
type Breakdown struct {
	Model        string
	Multiplier   float64
	InputTokens  int
	OutputTokens int
	FixedPart    float64
	VariablePart float64
	FinalPrice   float64
}

const (
	// FallbackQuote is returned when no price row exists for the kind.
	FallbackQuote = 150.00

	// MinQuote floors every estimate.
	MinQuote = 5.00

	charsPerToken     = 4
	outputCharsPerDoc = 2000
)

// Transaction prices one generated document. The model multiplier applies
// to the variable part only; the fixed component is charged as-is.
func Transaction(inputTokens, outputTokens int, r Rates, model string, modelMultiplier float64) Breakdown {
	variableBase := float64(inputTokens)/1000*r.RateInPer1K + float64(outputTokens)/1000*r.RateOutPer1K
	variable := roundCents(variableBase * modelMultiplier)
	final := roundCents(r.FixedPrice + variable)
	return Breakdown{
		Model:        model,
		Multiplier:   modelMultiplier,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		FixedPart:    r.FixedPrice,
		VariablePart: variable,
		FinalPrice:   final,
	}
}

// Quote estimates the price of a generation before it runs, assuming one
// token per four characters and about 2,000 output characters per
// requested document. Unlike Transaction, the complexity multiplier scales
// the grand total. A nil row yields the fallback quote.
func Quote(r *Rates, inputChars, docCount int) float64 {
	if r == nil {
		return FallbackQuote
	}
	if docCount < 1 {
		docCount = 1
	}
	inTokens := float64(inputChars) / charsPerToken
	outTokens := float64(docCount*outputCharsPerDoc) / charsPerToken
	total := r.FixedPrice + inTokens/1000*r.RateInPer1K + outTokens/1000*r.RateOutPer1K
	mult := r.ComplexityMultiplier
	if mult <= 0 {
		mult = 1
	}
	return math.Max(MinQuote, roundCents(total*mult))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
