package lineparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

func builtin(t *testing.T, id profile.ID) profile.Profile {
	t.Helper()
	p, ok := profile.Builtin(id)
	require.True(t, ok)
	return p
}

func TestParser_Default(t *testing.T) {
	p := NewParser(builtin(t, profile.Default), nil)

	lines := []string{
		"Piano di ammortamento",
		"N. rata   Scadenza   Importo",
		"01 15/06/2024 1.200,00",
		"Rata 15/07/2024 1.000,00 200,00 1.200,00",
		"3 16/08/2024 1767.70",
		"4 16.09.2024 100.00",
		"Importo residuo 1.000,00",
		"Totale complessivo 31/12/2024 4.267,70",
		"Pagina 1 di 3",
	}
	got := p.Parse(lines)
	require.Len(t, got, 4)

	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, "2024-06-15", got[0].DueDate)
	assert.Equal(t, "1200", got[0].Amount.String())

	assert.Equal(t, 2, got[1].Seq, "running counter")
	assert.Equal(t, "1200", got[1].Amount.String(), "last amount wins")
	assert.Equal(t, "Rata", got[1].Description)

	assert.Equal(t, 3, got[2].Seq)
	assert.Equal(t, "1767.7", got[2].Amount.String())

	assert.Equal(t, "2024-09-16", got[3].DueDate)
	assert.Equal(t, "100", got[3].Amount.String())
}

func TestParser_Profiles(t *testing.T) {
	t.Run("ader breakdown", func(t *testing.T) {
		p := NewParser(builtin(t, profile.ADER), nil)
		got := p.Parse([]string{"1 30/06/2024 1.000,00 25,00 1.025,00"})
		require.Len(t, got, 1)
		assert.Equal(t, "1025", got[0].Amount.String())
		require.NotNil(t, got[0].Debito)
		require.NotNil(t, got[0].Interessi)
		assert.Equal(t, "1000", got[0].Debito.String())
		assert.Equal(t, "25", got[0].Interessi.String())
	})

	t.Run("tax code and year", func(t *testing.T) {
		p := NewParser(builtin(t, profile.AgenziaEntrate), nil)
		got := p.Parse([]string{"2 16/06/2024 9001 2021 500,00 10,00 510,00"})
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].Seq)
		assert.Equal(t, "9001", got[0].Tributo)
		assert.Equal(t, "2021", got[0].Anno)
		assert.Equal(t, "510", got[0].Amount.String())
	})
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"short", true},
		{"Pagina 2 di 5 - 15/06/2024", true},
		{"N. Rata Data scadenza Importo", true},
		{"Scadenza        Importo da versare", true},
		{"TOTALE DA VERSARE 12.000,00", true},
		{"3 16/08/2024 1.767,70", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoise(tt.line))
		})
	}
}
