package tax

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	table := DefaultTable()

	chile := table.Lookup("cl")
	assert.Equal(t, CountryChile, chile.CountryCode)
	assert.True(t, chile.VatRate.Equal(decimal.RequireFromString("0.19")))
	assert.True(t, chile.Rounds())

	us := table.Lookup("US")
	assert.Equal(t, "US", us.CountryCode)
	assert.True(t, us.VatRate.IsZero(), "unmapped country resolves to zero rate")
	assert.False(t, us.Rounds())
}

func TestRound(t *testing.T) {
	chile := DefaultTable().Lookup(CountryChile)

	tests := []struct {
		input    string
		expected string
	}{
		{input: "1190", expected: "1190"},
		{input: "1195.95", expected: "1200"},
		{input: "1200", expected: "1200"},
		{input: "1200.01", expected: "1210"},
		{input: "396.27", expected: "400"},
		{input: "0", expected: "0"},
		{input: "1", expected: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			actual := chile.Round(decimal.RequireFromString(tt.input))
			assert.True(t, actual.Equal(decimal.RequireFromString(tt.expected)), "got %s", actual)
		})
	}

	noRounding := Policy{CountryCode: "US"}
	total := decimal.RequireFromString("333.33")
	assert.True(t, noRounding.Round(total).Equal(total))
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable(filepath.Join("testdata", "tax.yaml"))
	require.NoError(t, err)

	peru := table.Lookup("PE")
	assert.True(t, peru.VatRate.Equal(decimal.RequireFromString("0.18")))
	assert.False(t, peru.Rounds())

	argentina := table.Lookup("ar")
	assert.True(t, argentina.RoundingStep.Equal(decimal.NewFromInt(1)))

	assert.True(t, table.Lookup(CountryChile).Rounds(), "defaults are kept")
	assert.ElementsMatch(t, []string{"CL", "PE", "AR"}, table.Countries())
}

func TestParseTableRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "rate above one", input: "countries:\n  - code: XX\n    vat_rate: \"1.5\"\n"},
		{name: "negative rate", input: "countries:\n  - code: XX\n    vat_rate: \"-0.1\"\n"},
		{name: "missing code", input: "countries:\n  - vat_rate: \"0.1\"\n"},
		{name: "bad step", input: "countries:\n  - code: XX\n    vat_rate: \"0.1\"\n    rounding_step: \"-10\"\n"},
		{name: "not yaml", input: "countries: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
