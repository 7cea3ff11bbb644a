package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These only exercise the configuration-validation paths that return before
// any Redis dial is attempted — there is no broker double for the concrete
// *redis.Client the broker package wraps, so the network-touching path is
// left to manual/integration testing.

func TestRunFailsOnMissingPairsFile(t *testing.T) {
	err := Run(context.Background(), Config{PairsPath: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
}

func TestRunFailsWhenNoPairsAreEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")
	err := os.WriteFile(path, []byte(`[{"symbol":"BTC_USD","base_asset":"BTC","quote_asset":"USD","enabled":false}]`), 0o644)
	require.NoError(t, err)

	err = Run(context.Background(), Config{PairsPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enabled pairs")
}
