// Package config loads the enabled-pairs configuration (spec §6.1): a JSON
// array of trading-pair entries, each describing a symbol's base/quote
// assets and whether the pair is enabled. The schema is fixed and has no
// environment overlay, so this is a deliberately thin wrapper over
// encoding/json rather than a config-merging library — see DESIGN.md.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Pair is one trading-pair entry from the configuration file.
type Pair struct {
	Symbol      string `json:"symbol"`
	BaseAsset   string `json:"base_asset"`
	QuoteAsset  string `json:"quote_asset"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// KeySuffix returns the canonical broker key suffix for this pair:
// upper(base)_upper(quote), per spec §6.2.
func (p Pair) KeySuffix() string {
	return strings.ToUpper(p.BaseAsset) + "_" + strings.ToUpper(p.QuoteAsset)
}

// Load reads and parses the configuration file at path, returning only the
// enabled pairs.
func Load(path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var all []Pair
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	enabled := make([]Pair, 0, len(all))
	for _, p := range all {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled, nil
}
