package entity

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/installments-tracker/constants"
)

// Installment is one row of an extracted payment schedule.
type Installment struct {
	Seq         int              `json:"seq"`
	DueDate     string           `json:"due_date"` // YYYY-MM-DD
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Tributo     string           `json:"tributo,omitempty"`
	Anno        string           `json:"anno,omitempty"`
	Debito      *decimal.Decimal `json:"debito,omitempty"`
	Interessi   *decimal.Decimal `json:"interessi,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Source      constants.Source `json:"source,omitempty"`
}

// Enrich copies optional fields from other where i has none. A row without
// a positive amount also takes other's amount when that one is positive.
func (i *Installment) Enrich(other Installment) {
	if !i.Amount.IsPositive() && other.Amount.IsPositive() {
		i.Amount = other.Amount
	}
	if i.Seq <= 0 && other.Seq > 0 {
		i.Seq = other.Seq
	}
	if i.Description == "" {
		i.Description = other.Description
	}
	if i.Tributo == "" {
		i.Tributo = other.Tributo
	}
	if i.Anno == "" {
		i.Anno = other.Anno
	}
	if i.Debito == nil && other.Debito != nil {
		d := *other.Debito
		i.Debito = &d
	}
	if i.Interessi == nil && other.Interessi != nil {
		d := *other.Interessi
		i.Interessi = &d
	}
	if i.Notes == "" {
		i.Notes = other.Notes
	}
}
