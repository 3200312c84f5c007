package constants

// Phase is the orchestrator state reported through the phase callback.
type Phase string

// Stable values (callers may persist or display these exact strings).
const (
	PhaseText Phase = "text" // text-layer pass running
	PhaseOCR  Phase = "ocr"  // text layer judged insufficient, OCR pass running
	PhaseDone Phase = "done" // terminal
)

// Source records which pass produced an installment.
type Source string

const (
	SourceText  Source = "text"
	SourceOCR   Source = "ocr"
	SourceTable Source = "table"
	SourceLine  Source = "line"
)

// DefaultMinExpected is the row count that lets the text pass skip OCR.
const DefaultMinExpected = 10

// DefaultCurrency is used when rendering amounts for humans.
const DefaultCurrency = "EUR"
