package resolve

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TickerStore is the slice of the persistence layer the engine needs:
// insert-or-ignore writes keyed by (secret, ticker) and a read of the full
// set for one secret.
type TickerStore interface {
	AddTicker(secret, ticker string) error
	ListTickers(secret string) ([]string, error)
}

// Engine merges default-token expansion, request-supplied tickers and
// secret-scoped persisted tickers into one ordered, deduplicated list.
type Engine struct {
	store         TickerStore
	defaultSecret string
	defaultTokens []string
}

func New(store TickerStore, defaultSecret string, defaultTokens []string) *Engine {
	return &Engine{
		store:         store,
		defaultSecret: defaultSecret,
		defaultTokens: defaultTokens,
	}
}

var fallbackTickers = []string{"BTC", "ETH", "PI"}

// Fallback returns the literal ticker list used when nothing else applies.
func Fallback() []string {
	return append([]string(nil), fallbackTickers...)
}

// Resolve implements the v2 gathering sequence. Each step only appends:
//
//  1. secret matching the configured default secret expands the default
//     token list (those symbols are never persisted);
//  2. any non-empty secret persists the request tickers under it and then
//     appends the full persisted set;
//  3. no secret appends the request tickers directly, or the fallback list
//     when the request carried none.
//
// The accumulated list is deduplicated preserving first occurrence and the
// fallback list substitutes for an empty result. A persistence write failure
// is logged and skipped; a read failure is terminal because the persisted
// set cannot be reconstructed from the request.
func (e *Engine) Resolve(secret, rawTickers string) ([]string, error) {
	var final []string

	if e.defaultSecret != "" && secret == e.defaultSecret {
		final = append(final, SymbolsFromTokens(e.defaultTokens)...)
	}

	if secret != "" {
		for _, t := range SplitTickers(rawTickers) {
			if err := e.store.AddTicker(secret, t); err != nil {
				log.WithError(err).WithField("ticker", t).Warn("persist ticker failed, continuing")
			}
		}
		persisted, err := e.store.ListTickers(secret)
		if err != nil {
			return nil, fmt.Errorf("list tickers: %w", err)
		}
		final = append(final, persisted...)
		// Request tickers still count even when the write above failed.
		final = append(final, SplitTickers(rawTickers)...)
	} else {
		if tickers := SplitTickers(rawTickers); len(tickers) > 0 {
			final = append(final, tickers...)
		} else {
			final = append(final, fallbackTickers...)
		}
	}

	unique := dedupe(final)
	if len(unique) == 0 {
		unique = Fallback()
	}
	return unique, nil
}

// ResolveLegacy implements the v1 endpoint's three-way check: the raw string
// doubles as the secret-equivalent. No persistence, no dedupe.
func (e *Engine) ResolveLegacy(raw string) []string {
	if e.defaultSecret != "" && raw == e.defaultSecret {
		return SymbolsFromTokens(e.defaultTokens)
	}
	if raw == "" {
		return Fallback()
	}
	return strings.Split(raw, ",")
}

// SymbolsFromTokens extracts the parenthesized symbol from display strings
// like "Bitcoin (BTC)". Entries without a parenthesized part are skipped.
func SymbolsFromTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		open := strings.LastIndex(token, "(")
		end := strings.LastIndex(token, ")")
		if open < 0 || end <= open+1 {
			continue
		}
		out = append(out, strings.TrimSpace(token[open+1:end]))
	}
	return out
}

// SplitTickers parses a comma-separated ticker string, trimming whitespace
// and dropping empty tokens.
func SplitTickers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
