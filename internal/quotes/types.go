package quotes

import "context"

// Asset is one entry of the provider's quote mapping. Numeric fields are
// pointers so an attribute the provider omitted stays distinguishable from
// zero and renders as an empty cell downstream.
type Asset struct {
	Name              string            `json:"name"`
	Symbol            string            `json:"symbol"`
	CirculatingSupply *float64          `json:"circulating_supply"`
	TotalSupply       *float64          `json:"total_supply"`
	TokenAddress      *string           `json:"token_address"`
	Quote             map[string]Detail `json:"quote"`
}

// Detail is the per-currency quote block nested under an asset.
type Detail struct {
	Price              *float64 `json:"price"`
	MarketCap          *float64 `json:"market_cap"`
	MarketCapDominance *float64 `json:"market_cap_dominance"`
	Volume24H          *float64 `json:"volume_24h"`
	VolumeChange24H    *float64 `json:"volume_change_24h"`
}

// Detail returns the quote block for currency, or a zero block when the
// provider sent no quote at all for this asset.
func (a Asset) Detail(currency string) Detail {
	if a.Quote == nil {
		return Detail{}
	}
	return a.Quote[currency]
}

type Provider interface {
	// FetchQuotes returns one Asset per symbol the provider knows about,
	// ordered by the requested symbol list.
	FetchQuotes(ctx context.Context, symbols []string) ([]Asset, error)
}
