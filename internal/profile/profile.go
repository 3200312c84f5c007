// Package profile defines the per-vendor pattern bundles used by the line
// parser and picks one for a document by keyword scoring.
package profile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
)

// ID identifies a parsing profile. Built-in identifiers are the constants
// below; persisted profiles may add their own keys.
type ID string

const (
	Default        ID = "default"
	ADER           ID = "ader"            // Agenzia delle Entrate-Riscossione payment plans
	AgenziaEntrate ID = "agenzia_entrate" // rateized tax notices
	INPS           ID = "inps"            // social security contribution plans
)

var builtinIDs = []ID{Default, ADER, AgenziaEntrate, INPS}

// IsBuiltin reports whether id is one of the shipped profiles.
func (id ID) IsBuiltin() bool {
	for _, b := range builtinIDs {
		if b == id {
			return true
		}
	}
	return false
}

// Profile is an immutable bundle of compiled patterns. A nil pattern means
// the line parser uses its generic fallback for that field. Auxiliary
// patterns carry the value in their first capture group.
type Profile struct {
	ID          ID
	Description string
	Keywords    []string

	Seq       *regexp.Regexp
	Date      *regexp.Regexp
	Amount    *regexp.Regexp
	Tributo   *regexp.Regexp
	Anno      *regexp.Regexp
	Debito    *regexp.Regexp
	Interessi *regexp.Regexp
}

const itAmount = `\d{1,3}(?:\.\d{3})*,\d{2}`

// Builtin returns the shipped profile for id.
func Builtin(id ID) (Profile, bool) {
	switch id {
	case Default:
		return Profile{
			ID:          Default,
			Description: "generic installment schedule",
			Seq:         regexp.MustCompile(`^\s*(\d{1,3})[\s.)]`),
			Anno:        regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
		}, true
	case ADER:
		return Profile{
			ID:          ADER,
			Description: "Agenzia delle Entrate-Riscossione rateizzazione",
			Keywords: []string{
				"agenzia delle entrate-riscossione", "riscossione", "rateizzazione",
				"piano di rateizzazione", "cartella", "numero rata", "importo rata",
			},
			Seq:       regexp.MustCompile(`^\s*(\d{1,3})\s`),
			Date:      regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
			Debito:    regexp.MustCompile(`(` + itAmount + `)\s+` + itAmount + `\s+` + itAmount),
			Interessi: regexp.MustCompile(itAmount + `\s+(` + itAmount + `)\s+` + itAmount),
		}, true
	case AgenziaEntrate:
		return Profile{
			ID:          AgenziaEntrate,
			Description: "Agenzia delle Entrate avviso bonario rateizzato",
			Keywords: []string{
				"agenzia delle entrate", "avviso bonario", "comunicazione", "codice tributo",
				"f24", "rateazione", "controllo automatizzato",
			},
			Seq:       regexp.MustCompile(`^\s*(\d{1,3})\s`),
			Date:      regexp.MustCompile(`(\d{2}[/.-]\d{2}[/.-]\d{4})`),
			Tributo:   regexp.MustCompile(`\b(\d{4}|[A-Z]{2}\d{2})\s+(?:19|20)\d{2}\b`),
			Anno:      regexp.MustCompile(`\b(?:\d{4}|[A-Z]{2}\d{2})\s+((?:19|20)\d{2})\b`),
			Debito:    regexp.MustCompile(`(` + itAmount + `)\s+` + itAmount + `\s+` + itAmount),
			Interessi: regexp.MustCompile(itAmount + `\s+(` + itAmount + `)\s+` + itAmount),
		}, true
	case INPS:
		return Profile{
			ID:          INPS,
			Description: "INPS dilazione contributiva",
			Keywords: []string{
				"inps", "istituto nazionale della previdenza sociale", "contributi",
				"dilazione", "gestione separata", "causale contributo", "matricola",
			},
			Seq:     regexp.MustCompile(`^\s*(\d{1,3})\s`),
			Tributo: regexp.MustCompile(`\b([A-Z]{2,4})\s+(?:19|20)\d{2}\b`),
			Anno:    regexp.MustCompile(`\b[A-Z]{2,4}\s+((?:19|20)\d{2})\b`),
		}, true
	}
	return Profile{}, false
}

// FromRecord compiles a persisted record. Empty patterns inherit from the
// built-in profile with the same key, or from the default profile.
func FromRecord(rec entity.ParsingProfile) (Profile, error) {
	key := ID(strings.TrimSpace(rec.Key))
	if key == "" {
		return Profile{}, fmt.Errorf("profile: empty key")
	}
	base, ok := Builtin(key)
	if !ok {
		base, _ = Builtin(Default)
	}
	p := base
	p.ID = key
	if rec.Description != "" {
		p.Description = rec.Description
	}
	if len(rec.Keywords) > 0 {
		p.Keywords = append([]string(nil), rec.Keywords...)
	}

	fields := []struct {
		name string
		src  string
		dst  **regexp.Regexp
	}{
		{"seq_pattern", rec.SeqPattern, &p.Seq},
		{"date_pattern", rec.DatePattern, &p.Date},
		{"amount_pattern", rec.AmountPattern, &p.Amount},
		{"tributo_pattern", rec.TributoPattern, &p.Tributo},
		{"anno_pattern", rec.AnnoPattern, &p.Anno},
		{"debito_pattern", rec.DebitoPattern, &p.Debito},
		{"interessi_pattern", rec.InteressiPattern, &p.Interessi},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		re, err := regexp.Compile(f.src)
		if err != nil {
			return Profile{}, fmt.Errorf("profile %q: %s: %w", key, f.name, err)
		}
		*f.dst = re
	}
	return p, nil
}

// ToRecord converts p back into a persistable record. It is the inverse of
// FromRecord for built-in profiles.
func ToRecord(p Profile) entity.ParsingProfile {
	src := func(re *regexp.Regexp) string {
		if re == nil {
			return ""
		}
		return re.String()
	}
	return entity.ParsingProfile{
		Key:              string(p.ID),
		Description:      p.Description,
		Keywords:         append([]string(nil), p.Keywords...),
		SeqPattern:       src(p.Seq),
		DatePattern:      src(p.Date),
		AmountPattern:    src(p.Amount),
		TributoPattern:   src(p.Tributo),
		AnnoPattern:      src(p.Anno),
		DebitoPattern:    src(p.Debito),
		InteressiPattern: src(p.Interessi),
	}
}
