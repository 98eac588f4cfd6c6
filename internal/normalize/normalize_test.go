package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"already clean", "Appel à projets", "Appel à projets"},
		{"collapses runs", "Appel   à \t projets", "Appel à projets"},
		{"trims ends", "  Appel à projets \n", "Appel à projets"},
		{"non-breaking spaces", "Appel\u00a0à\u00a0projets", "Appel à projets"},
		{"newlines inside", "line one\nline two", "line one line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanTextPtr(t *testing.T) {
	assert.Equal(t, "", CleanTextPtr(nil))
	s := "  hello  world "
	assert.Equal(t, "hello world", CleanTextPtr(&s))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // yyyy-mm-dd, empty for nil
	}{
		{"iso", "2023-11-01", "2023-11-01"},
		{"numeric dd/mm/yyyy", "01/11/2023", "2023-11-01"},
		{"long french", "1 novembre 2023", "2023-11-01"},
		{"long french with accents", "18 avril 2024", "2024-04-18"},
		{"french ordinal", "1er novembre 2023", "2023-11-01"},
		{"long english", "November 1, 2023", "2023-11-01"},
		{"surrounding whitespace", "  2023-11-01  ", "2023-11-01"},
		{"empty", "", ""},
		{"garbage", "soon", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.UTC, got.Location())
			assert.Equal(t, 0, got.Hour())
		})
	}
}

func TestParseDateEquivalentFormats(t *testing.T) {
	iso := ParseDate("2023-11-01")
	french := ParseDate("1 novembre 2023")
	require.NotNil(t, iso)
	require.NotNil(t, french)
	assert.True(t, iso.Equal(*french))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // decimal string, empty for nil
	}{
		{"space grouped", "Montant: 15 000 000 XOF", "15000000"},
		{"comma grouped with decimal", "Budget: 1,200.50 EUR", "1200.5"},
		{"no number", "No amount here", ""},
		{"plain integer", "50000", "50000"},
		{"comma decimal", "1 200,50 €", "1200.5"},
		{"dot grouped", "15.000.000 FCFA", "15000000"},
		{"comma grouped integer", "15,000,000", "15000000"},
		{"non-breaking space groups", "15\u00a0000\u00a0000 XOF", "15000000"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestDeriveSector(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        string // empty for nil
	}{
		{"agriculture keyword", "Fonds agriculture 2024", "", "agri"},
		{"tech keyword in description", "Appel à projets", "startups du numérique", "tech"},
		{"health keyword", "Subvention santé", "", "health"},
		{"case insensitive", "AGRICULTURE durable", "", "agri"},
		{"agri wins over tech", "Agro tech accelerator", "", "agri"},
		{"no match", "Concours général", "toutes filières", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSector(tt.title, tt.description)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
