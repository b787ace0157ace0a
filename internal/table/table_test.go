package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-export/internal/quotes"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func asset(name, symbol string, price float64) quotes.Asset {
	return quotes.Asset{
		Name:   name,
		Symbol: symbol,
		Quote: map[string]quotes.Detail{
			"USD": {Price: fp(price)},
		},
	}
}

func TestBuild_PriceOnly(t *testing.T) {
	assets := []quotes.Asset{
		asset("Bitcoin", "BTC", 60000.5),
		asset("Ethereum", "ETH", 2500),
	}

	ds, err := Build(assets, ColumnConfig{Price: true}, "USD")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Symbol", "Price"}, ds.Header())
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, []any{"Bitcoin", "BTC", 60000.5}, ds.Row(0))
	assert.Equal(t, []any{"Ethereum", "ETH", 2500.0}, ds.Row(1))
}

func TestBuild_NothingEnabled(t *testing.T) {
	assets := []quotes.Asset{
		asset("Bitcoin", "BTC", 60000),
		asset("Ethereum", "ETH", 2500),
	}

	ds, err := Build(assets, ColumnConfig{}, "USD")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Symbol"}, ds.Header())
	assert.Equal(t, 2, ds.RowCount())
}

func TestBuild_ColumnOrderFollowsDeclarationOrder(t *testing.T) {
	cfg := ColumnConfig{
		SupplyPercent: true,
		Price:         true,
		Volume24H:     true,
		MarketCap:     true,
	}

	ds, err := Build(nil, cfg, "USD")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"Name", "Symbol", "Price", "Market Cap", "Volume(24h)", "Supply %"},
		ds.Header())
	assert.Equal(t, 0, ds.RowCount())
}

func TestBuild_SpecialAndDefaultTitles(t *testing.T) {
	cfg := ColumnConfig{
		Volume24H:          true,
		VolumeChange24H:    true,
		SupplyPercent:      true,
		MarketCapDominance: true,
		TokenAddress:       true,
	}

	ds, err := Build(nil, cfg, "USD")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Name", "Symbol",
		"Token Address",
		"Market Cap Dominance",
		"Volume(24h)",
		"Volume Change(24h)",
		"Supply %",
	}, ds.Header())
}

func TestBuild_SupplyPercent(t *testing.T) {
	withSupply := func(circ, total *float64) quotes.Asset {
		return quotes.Asset{Name: "X", Symbol: "X", CirculatingSupply: circ, TotalSupply: total}
	}

	ds, err := Build([]quotes.Asset{
		withSupply(fp(50), fp(100)),
		withSupply(fp(50), fp(0)),
		withSupply(fp(50), nil),
		withSupply(fp(1), fp(3)),
	}, ColumnConfig{SupplyPercent: true}, "USD")
	require.NoError(t, err)

	col := ds.Columns[ds.ColumnIndex("Supply %")].Values
	assert.Equal(t, 50.0, col[0])
	assert.Equal(t, "N/A", col[1])
	assert.Equal(t, "N/A", col[2])
	assert.Equal(t, 33.33, col[3])
}

func TestBuild_MissingQuoteBlockYieldsPlaceholders(t *testing.T) {
	assets := []quotes.Asset{
		{Name: "Ghost", Symbol: "GHO"}, // no quote block at all
		asset("Bitcoin", "BTC", 60000),
	}

	ds, err := Build(assets, ColumnConfig{Price: true, MarketCap: true}, "USD")
	require.NoError(t, err)

	// The entry without a quote block still occupies a full row.
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, []any{"Ghost", "GHO", nil, nil}, ds.Row(0))
	assert.Equal(t, []any{"Bitcoin", "BTC", 60000.0, nil}, ds.Row(1))
}

func TestBuild_TopLevelAttributes(t *testing.T) {
	a := quotes.Asset{
		Name:              "Bitcoin",
		Symbol:            "BTC",
		CirculatingSupply: fp(19000000),
		TotalSupply:       fp(21000000),
		TokenAddress:      sp("0xabc"),
	}

	ds, err := Build([]quotes.Asset{a}, ColumnConfig{
		TokenAddress:      true,
		CirculatingSupply: true,
		TotalSupply:       true,
	}, "USD")
	require.NoError(t, err)

	assert.Equal(t, []any{"Bitcoin", "BTC", "0xabc", 19000000.0, 21000000.0}, ds.Row(0))
}

func TestBuild_MarketCapAbbrvSharesMarketCapValue(t *testing.T) {
	a := quotes.Asset{
		Name:   "Bitcoin",
		Symbol: "BTC",
		Quote:  map[string]quotes.Detail{"USD": {MarketCap: fp(1.2e12)}},
	}

	ds, err := Build([]quotes.Asset{a}, ColumnConfig{MarketCapAbbrv: true, MarketCap: true}, "USD")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Symbol", "Market Cap Abbrv", "Market Cap"}, ds.Header())
	assert.Equal(t, []any{"Bitcoin", "BTC", 1.2e12, 1.2e12}, ds.Row(0))
}

func TestCheckRectangular(t *testing.T) {
	ds := &Dataset{Columns: []Column{
		{Title: "Name", Values: []any{"a", "b"}},
		{Title: "Price", Values: []any{1.0}},
	}}

	err := checkRectangular(ds, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Price")
}
