package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.767,70", "1767.7", true},
		{"1767.70", "1767.7", true},
		{"1,767.70", "1767.7", true},
		{"€ 12.345.678,90", "12345678.9", true},
		{"45,00", "45", true},
		{"rata 3", "0", false},
		{"1.767", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestLastAmount(t *testing.T) {
	got, ok := LastAmount("3 16/09/2024 1.000,00 67,70 1.067,70")
	assert.True(t, ok)
	assert.Equal(t, "1067.7", got.String())

	got, ok = LastAmount("3 16/09/2024 1000.00 1067.70")
	assert.True(t, ok)
	assert.Equal(t, "1067.7", got.String())
}

func TestFindDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"scad. 15/06/2024", "2024-06-15", true},
		{"1-7-24", "2024-07-01", true},
		{"15.06.2024", "2024-06-15", true},
		{"2024-06-15", "2024-06-15", true},
		{"30/02/2024 01/03/2024", "2024-03-01", true},
		{"no date here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, _, ok := FindDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairDigits(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1O/O6/2O24", "10/06/2024"},
		{"l.2OO,OO", "1.200,00"},
		{"1S/O8/2O24", "15/08/2024"},
		{"|2", "12"},
		{"IMU", "IMU"},
		{"Scadenza", "Scadenza"},
		{"SOS", "SOS"},
		{"Rata2", "Rata2"},
		{"1.200,00", "1.200,00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairDigits(tt.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "quantita residua", Fold("  Quantità   RESIDUA "))
}
