package repository

import (
	"time"

	"github.com/google/uuid"
)

// Subject areas a case may belong to.
const (
	CaseTypeRealEstate       = "real-estate"
	CaseTypeMedicalLiability = "medical-liability"
	CaseTypeContracts        = "contracts"
)

// Snapshot origin tags.
const (
	OriginAutoGenerated  = "auto_generated"
	OriginChatTranscript = "chat_transcript"
)

// Case is one legal matter (fascicolo) with its inputs and generated
// document history.
type Case struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	ReferenceName    string             `json:"reference_name"`
	CaseType         string             `json:"case_type"`
	ClientName       string             `json:"client_name"`
	CounterpartyName string             `json:"counterparty_name"`
	TechnicalNotes   string             `json:"technical_notes"`
	Aggressiveness   int                `json:"aggressiveness"`
	State            string             `json:"state"`
	CreatedAt        time.Time          `json:"created_at"`
	GeneratedDocs    []DocumentSnapshot `json:"generated_documents"`
}

// DocumentSnapshot is one row of a case's append-only generation history,
// pricing metadata included.
type DocumentSnapshot struct {
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	Origin       string    `json:"origin"`
	Model        string    `json:"model"`
	Multiplier   float64   `json:"multiplier"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	FixedPart    float64   `json:"fixed_part"`
	VariablePart float64   `json:"variable_part"`
	FinalPrice   float64   `json:"final_price"`
}

// ModelRow is one available LLM with its billing multiplier.
type ModelRow struct {
	Name            string  `json:"model_name"`
	IsActive        bool    `json:"is_active"`
	PriceMultiplier float64 `json:"price_multiplier"`
}

// UserProfile is the slice of the auth store's record the core reads.
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	StudioName   string    `json:"studio_name"`
	Role         string    `json:"role"`          // user | admin
	AccountState string    `json:"account_state"` // pending | active | suspended
}

// CaseType is a display-name row for a subject area code.
type CaseType struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// ClampAggressiveness keeps the tunable inside [1,10]; 0 maps to the
// default of 5.
func ClampAggressiveness(v int) int {
	switch {
	case v == 0:
		return 5
	case v < 1:
		return 1
	case v > 10:
		return 10
	default:
		return v
	}
}
