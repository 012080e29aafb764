package tax

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidPolicy = errors.New("invalid tax policy")

type policyFile struct {
	Countries []struct {
		Code         string `yaml:"code"`
		VatRate      string `yaml:"vat_rate"`
		RoundingStep string `yaml:"rounding_step"`
	} `yaml:"countries"`
}

// LoadTable reads a YAML tax table and merges it over DefaultTable.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed reading tax table path=%s with error=%w", path, err)
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (Table, error) {
	file := policyFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Table{}, fmt.Errorf("failed decoding tax table with error=%w", err)
	}

	table := DefaultTable()
	for _, c := range file.Countries {
		code := normalize(c.Code)
		if code == "" {
			return Table{}, fmt.Errorf("%w: missing country code", ErrInvalidPolicy)
		}

		rate, err := decimal.NewFromString(c.VatRate)
		if err != nil {
			return Table{}, fmt.Errorf("%w: country=%s vat_rate=%q", ErrInvalidPolicy, code, c.VatRate)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return Table{}, fmt.Errorf("%w: country=%s vat_rate=%s out of [0,1]", ErrInvalidPolicy, code, rate)
		}

		step := decimal.Zero
		if c.RoundingStep != "" {
			step, err = decimal.NewFromString(c.RoundingStep)
			if err != nil || step.IsNegative() {
				return Table{}, fmt.Errorf("%w: country=%s rounding_step=%q", ErrInvalidPolicy, code, c.RoundingStep)
			}
		}

		table.policies[code] = Policy{CountryCode: code, VatRate: rate, RoundingStep: step}
	}
	return table, nil
}
