package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
)

const aderText = `Agenzia delle Entrate-Riscossione
Piano di rateizzazione relativo alla cartella n. 123
Numero rata  Scadenza  Importo rata`

func TestDetect(t *testing.T) {
	t.Run("vendor text", func(t *testing.T) {
		id, ok := Detect(aderText)
		assert.True(t, ok)
		assert.Equal(t, ADER, id)
	})

	t.Run("too few keywords falls back to default", func(t *testing.T) {
		id, ok := Detect("Piano di rateizzazione")
		assert.False(t, ok)
		assert.Equal(t, Default, id)
	})

	t.Run("accents and case are folded", func(t *testing.T) {
		id, ok := Detect("ISTITUTO NAZIONALE DELLA PREVIDENZA SOCIALE - INPS\nDilazione contributi")
		assert.True(t, ok)
		assert.Equal(t, INPS, id)
	})

	t.Run("pure", func(t *testing.T) {
		a, _ := Detect(aderText)
		b, _ := Detect(aderText)
		assert.Equal(t, a, b)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("built-ins present", func(t *testing.T) {
		r := NewRegistry()
		assert.Equal(t, []ID{Default, ADER, AgenziaEntrate, INPS}, r.IDs())
		p, ok := r.Get(ADER)
		require.True(t, ok)
		assert.NotNil(t, p.Debito)
	})

	t.Run("resolve unknown returns default", func(t *testing.T) {
		r := NewRegistry()
		assert.Equal(t, Default, r.Resolve("nope").ID)
		assert.Equal(t, Default, r.Resolve("").ID)
	})

	t.Run("custom profile takes part in detection", func(t *testing.T) {
		r := NewRegistry()
		p, err := FromRecord(entity.ParsingProfile{
			Key:      "comune_roma",
			Keywords: []string{"roma capitale", "tari", "avviso di pagamento"},
		})
		require.NoError(t, err)
		require.NoError(t, r.Register(p))

		id, ok := r.Detect("ROMA CAPITALE - TARI 2024 - Avviso di pagamento")
		assert.True(t, ok)
		assert.Equal(t, ID("comune_roma"), id)
		assert.False(t, id.IsBuiltin())
	})

	t.Run("override keeps order", func(t *testing.T) {
		r := NewRegistry()
		p, err := FromRecord(entity.ParsingProfile{Key: "inps", Description: "patched"})
		require.NoError(t, err)
		require.NoError(t, r.Register(p))
		assert.Len(t, r.IDs(), 4)
		got, _ := r.Get(INPS)
		assert.Equal(t, "patched", got.Description)
		assert.NotNil(t, got.Tributo)
	})
}

func TestFromRecord(t *testing.T) {
	t.Run("bad pattern", func(t *testing.T) {
		_, err := FromRecord(entity.ParsingProfile{Key: "x", DatePattern: "(["})
		assert.ErrorContains(t, err, "date_pattern")
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := FromRecord(entity.ParsingProfile{})
		assert.Error(t, err)
	})

	t.Run("unknown key inherits default patterns", func(t *testing.T) {
		p, err := FromRecord(entity.ParsingProfile{Key: "vendor"})
		require.NoError(t, err)
		assert.NotNil(t, p.Seq)
		assert.Nil(t, p.Date)
	})
}

func TestToRecord(t *testing.T) {
	for _, id := range builtinIDs {
		t.Run(string(id), func(t *testing.T) {
			p, _ := Builtin(id)
			back, err := FromRecord(ToRecord(p))
			require.NoError(t, err)
			assert.Equal(t, p.Keywords, back.Keywords)
			assert.Equal(t, ToRecord(p), ToRecord(back))
		})
	}
}
