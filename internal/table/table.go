package table

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"crypto-export/internal/quotes"
)

// ColumnConfig selects the output columns. Every field defaults to excluded;
// declaration order is column order. Name and Symbol are always present and
// not part of the selection.
type ColumnConfig struct {
	Price              bool `query:"price"`
	TokenAddress       bool `query:"token_address"`
	MarketCapAbbrv     bool `query:"market_cap_abbrv"`
	MarketCap          bool `query:"market_cap"`
	MarketCapDominance bool `query:"market_cap_dominance"`
	Volume24H          bool `query:"volume_24h"`
	CirculatingSupply  bool `query:"circulating_supply"`
	TotalSupply        bool `query:"total_supply"`
	VolumeChange24H    bool `query:"volume_change_24h"`
	SupplyPercent      bool `query:"supply_percent"`
}

// Column is one ordered output column. Values holds float64, string or nil.
type Column struct {
	Title  string
	Values []any
}

// Dataset is the rectangular per-request table handed to the packager.
type Dataset struct {
	Columns []Column
}

func (d *Dataset) RowCount() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

func (d *Dataset) Header() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Title
	}
	return out
}

// Row returns the i-th row in build order.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Values[i]
	}
	return out
}

// ColumnIndex returns the position of the column with the given title, or -1.
func (d *Dataset) ColumnIndex(title string) int {
	for i, c := range d.Columns {
		if c.Title == title {
			return i
		}
	}
	return -1
}

type columnSpec struct {
	key     string
	enabled func(ColumnConfig) bool
	value   func(quotes.Asset, quotes.Detail) any
}

// selectable mirrors the ColumnConfig field order. Titles for three keys are
// fixed special cases, the rest follow the underscores-to-spaces title rule.
var selectable = []columnSpec{
	{"price", func(c ColumnConfig) bool { return c.Price },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.Price) }},
	{"token_address", func(c ColumnConfig) bool { return c.TokenAddress },
		func(a quotes.Asset, _ quotes.Detail) any { return sval(a.TokenAddress) }},
	{"market_cap_abbrv", func(c ColumnConfig) bool { return c.MarketCapAbbrv },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.MarketCap) }},
	{"market_cap", func(c ColumnConfig) bool { return c.MarketCap },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.MarketCap) }},
	{"market_cap_dominance", func(c ColumnConfig) bool { return c.MarketCapDominance },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.MarketCapDominance) }},
	{"volume_24h", func(c ColumnConfig) bool { return c.Volume24H },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.Volume24H) }},
	{"circulating_supply", func(c ColumnConfig) bool { return c.CirculatingSupply },
		func(a quotes.Asset, _ quotes.Detail) any { return fval(a.CirculatingSupply) }},
	{"total_supply", func(c ColumnConfig) bool { return c.TotalSupply },
		func(a quotes.Asset, _ quotes.Detail) any { return fval(a.TotalSupply) }},
	{"volume_change_24h", func(c ColumnConfig) bool { return c.VolumeChange24H },
		func(_ quotes.Asset, q quotes.Detail) any { return fval(q.VolumeChange24H) }},
	{"supply_percent", func(c ColumnConfig) bool { return c.SupplyPercent },
		func(a quotes.Asset, _ quotes.Detail) any { return supplyPercent(a) }},
}

var specialTitles = map[string]string{
	"supply_percent":    "Supply %",
	"volume_change_24h": "Volume Change(24h)",
	"volume_24h":        "Volume(24h)",
}

var titleCaser = cases.Title(language.English)

func titleFor(key string) string {
	if t, ok := specialTitles[key]; ok {
		return t
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// Build produces one row per asset with Name, Symbol and every enabled
// column, in declaration order. Rows are appended in lock-step: an asset
// missing its quote block still contributes a value (nil) to every column.
func Build(assets []quotes.Asset, cfg ColumnConfig, currency string) (*Dataset, error) {
	if currency == "" {
		currency = "USD"
	}

	enabled := make([]columnSpec, 0, len(selectable))
	for _, spec := range selectable {
		if spec.enabled(cfg) {
			enabled = append(enabled, spec)
		}
	}

	ds := &Dataset{Columns: make([]Column, 0, 2+len(enabled))}
	ds.Columns = append(ds.Columns, Column{Title: "Name"}, Column{Title: "Symbol"})
	for _, spec := range enabled {
		ds.Columns = append(ds.Columns, Column{Title: titleFor(spec.key)})
	}

	for _, asset := range assets {
		detail := asset.Detail(currency)
		ds.Columns[0].Values = append(ds.Columns[0].Values, asset.Name)
		ds.Columns[1].Values = append(ds.Columns[1].Values, asset.Symbol)
		for i, spec := range enabled {
			ds.Columns[2+i].Values = append(ds.Columns[2+i].Values, spec.value(asset, detail))
		}
	}

	if err := checkRectangular(ds, len(assets)); err != nil {
		return nil, err
	}
	return ds, nil
}

// checkRectangular enforces the dataset invariant: every column holds exactly
// one value per processed asset. A violation is an internal error, never
// silently repaired.
func checkRectangular(ds *Dataset, rows int) error {
	for _, c := range ds.Columns {
		if len(c.Values) != rows {
			return fmt.Errorf("internal: column %q has %d values, expected %d", c.Title, len(c.Values), rows)
		}
	}
	return nil
}

// supplyPercent derives circulating/total as a percentage rounded to two
// decimals, or the literal "N/A" when total supply is zero or absent.
func supplyPercent(a quotes.Asset) any {
	circ := 0.0
	if a.CirculatingSupply != nil {
		circ = *a.CirculatingSupply
	}
	if a.TotalSupply == nil || *a.TotalSupply == 0 {
		return "N/A"
	}
	return math.Round(circ / *a.TotalSupply * 100 * 100) / 100
}

func fval(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func sval(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
