package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := New()

	ob, err := r.Register("BTC_USD")
	require.NoError(t, err)
	assert.Equal(t, "BTC_USD", ob.Symbol)

	got, ok := r.Book("BTC_USD")
	assert.True(t, ok)
	assert.Same(t, ob, got)

	_, ok = r.Book("ETH_USD")
	assert.False(t, ok)
}

func TestRegistryDuplicateRegister(t *testing.T) {
	r := New()
	_, err := r.Register("BTC_USD")
	require.NoError(t, err)

	_, err = r.Register("BTC_USD")
	assert.Error(t, err)
}

func TestRegistrySymbols(t *testing.T) {
	r := New()
	r.Register("BTC_USD")
	r.Register("ETH_USD")

	assert.ElementsMatch(t, []string{"BTC_USD", "ETH_USD"}, r.Symbols())
}
