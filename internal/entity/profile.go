package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParsingProfile is a persisted per-vendor pattern bundle.
type ParsingProfile struct {
	ID               uuid.UUID `json:"id" yaml:"-"`
	Key              string    `json:"key" yaml:"key"`
	Description      string    `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords         []string  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	SeqPattern       string    `json:"seq_pattern,omitempty" yaml:"seq_pattern,omitempty"`
	DatePattern      string    `json:"date_pattern,omitempty" yaml:"date_pattern,omitempty"`
	AmountPattern    string    `json:"amount_pattern,omitempty" yaml:"amount_pattern,omitempty"`
	TributoPattern   string    `json:"tributo_pattern,omitempty" yaml:"tributo_pattern,omitempty"`
	AnnoPattern      string    `json:"anno_pattern,omitempty" yaml:"anno_pattern,omitempty"`
	DebitoPattern    string    `json:"debito_pattern,omitempty" yaml:"debito_pattern,omitempty"`
	InteressiPattern string    `json:"interessi_pattern,omitempty" yaml:"interessi_pattern,omitempty"`
	CreatedAt        time.Time `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"-"`
}
