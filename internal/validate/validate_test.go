package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
)

func inst(seq int, date, amount string) entity.Installment {
	return entity.Installment{Seq: seq, DueDate: date, Amount: decimal.RequireFromString(amount)}
}

func total(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidate_Gaps(t *testing.T) {
	t.Run("single missing seq", func(t *testing.T) {
		rep := Validate([]entity.Installment{
			inst(1, "2024-01-15", "10"),
			inst(2, "2024-02-15", "10"),
			inst(4, "2024-04-15", "10"),
		}, nil)

		require.Len(t, rep.Warnings, 1)
		assert.Contains(t, rep.Warnings[0], "missing seq=3")
	})

	t.Run("contiguous and duplicated seqs", func(t *testing.T) {
		rep := Validate([]entity.Installment{
			inst(2, "2024-02-15", "10"),
			inst(1, "2024-01-15", "10"),
			inst(2, "2024-03-15", "10"),
		}, nil)
		assert.Empty(t, rep.Warnings)
	})

	t.Run("long gap is summarised", func(t *testing.T) {
		rep := Validate([]entity.Installment{inst(1, "2024-01-15", "10"), inst(30, "2026-06-15", "10")}, nil)
		require.Len(t, rep.Warnings, 1)
		assert.Contains(t, rep.Warnings[0], "seq=11")
		assert.NotContains(t, rep.Warnings[0], "seq=12")
		assert.Contains(t, rep.Warnings[0], "and 18 more")
	})
}

func TestValidate_Total(t *testing.T) {
	items := []entity.Installment{
		inst(1, "2024-01-15", "60.00"),
		inst(2, "2024-02-15", "40.00"),
	}

	tests := []struct {
		name     string
		expected *decimal.Decimal
		warn     string
	}{
		{"no expected total", nil, ""},
		{"exact", total("100.00"), ""},
		{"within tolerance", total("100.03"), ""},
		{"below within tolerance", total("99.98"), ""},
		{"just beyond tolerance", total("100.04"), "€100,04"},
		{"mismatch", total("101.00"), "101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Validate(items, tt.expected)
			assert.True(t, decimal.RequireFromString("100").Equal(rep.Total))
			if tt.warn != "" {
				require.Len(t, rep.Warnings, 1)
				assert.Contains(t, rep.Warnings[0], "total mismatch")
				assert.Contains(t, rep.Warnings[0], tt.warn)
			} else {
				assert.Empty(t, rep.Warnings)
			}
		})
	}
}

func TestValidate_Partition(t *testing.T) {
	items := []entity.Installment{
		inst(1, "2024-01-15", "10"),
		inst(0, "2024-02-15", "10"),
		inst(3, "15/03/2024", "10"),
		inst(4, "2024-04-15", "0"),
		inst(5, "2024-02-30", "10"),
	}
	rep := Validate(items, nil)

	require.Len(t, rep.Valid, 1)
	assert.Equal(t, 1, rep.Valid[0].Seq)
	require.Len(t, rep.Invalid, 4)
	assert.Equal(t, []string{"seq must be positive"}, rep.Invalid[0].Reasons)
	assert.Contains(t, rep.Invalid[1].Reasons[0], "15/03/2024")
	assert.Equal(t, []string{"amount must be positive"}, rep.Invalid[2].Reasons)
	assert.Len(t, rep.Invalid[3].Reasons, 1)
	assert.Equal(t, len(items), len(rep.Valid)+len(rep.Invalid))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		amount, currency, want string
	}{
		{"1200.5", "EUR", "€1.200,50"},
		{"1234567.891", "EUR", "€1.234.567,89"},
		{"0.03", "EUR", "€0,03"},
		{"-12.5", "EUR", "-€12,50"},
		{"1200.5", "USD", "$1,200.50"},
		{"1.5", "XYZ", "1.50 XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.currency+" "+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}
