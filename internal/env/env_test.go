package env

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSandboxVars(t *testing.T) {
	t.Helper()
	for _, name := range SandboxVars {
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestGuard_Restore_UnsetsVarsThatWerePreviouslyUnset(t *testing.T) {
	clearSandboxVars(t)

	g := NewGuard(map[string]string{"CODEX_SANDBOX_NETWORK_DISABLED": "1"})
	assert.Equal(t, "1", os.Getenv("CODEX_SANDBOX_NETWORK_DISABLED"))

	g.Restore()
	_, ok := os.LookupEnv("CODEX_SANDBOX_NETWORK_DISABLED")
	assert.False(t, ok)
}

func TestGuard_Restore_RestoresPriorValue(t *testing.T) {
	clearSandboxVars(t)
	require.NoError(t, os.Setenv("CODEX_SANDBOX_READ_ONLY", "0"))
	defer os.Unsetenv("CODEX_SANDBOX_READ_ONLY")

	g := NewGuard(map[string]string{"CODEX_SANDBOX_READ_ONLY": "1"})
	assert.Equal(t, "1", os.Getenv("CODEX_SANDBOX_READ_ONLY"))

	g.Restore()
	assert.Equal(t, "0", os.Getenv("CODEX_SANDBOX_READ_ONLY"))
}

func TestGuard_Restore_IsIdempotent(t *testing.T) {
	clearSandboxVars(t)
	require.NoError(t, os.Setenv("CODEX_SANDBOX", "seatbelt"))
	defer os.Unsetenv("CODEX_SANDBOX")

	g := NewGuard(nil)
	require.NoError(t, os.Setenv("CODEX_SANDBOX", "mutated-after-guard"))

	g.Restore()
	assert.Equal(t, "seatbelt", os.Getenv("CODEX_SANDBOX"))

	require.NoError(t, os.Setenv("CODEX_SANDBOX", "mutated-again"))
	g.Restore()
	assert.Equal(t, "mutated-again", os.Getenv("CODEX_SANDBOX"), "second Restore is a no-op")
}

func TestGuard_IgnoresOverridesForNonSandboxVars(t *testing.T) {
	clearSandboxVars(t)
	g := NewGuard(map[string]string{"PATH": "/bogus"})
	g.Restore()
	_, ok := os.LookupEnv("CODEX_SANDBOX")
	assert.False(t, ok)
}

func TestHome_FallsBackToDotCodex(t *testing.T) {
	prior, had := os.LookupEnv(HomeVar)
	require.NoError(t, os.Unsetenv(HomeVar))
	defer func() {
		if had {
			os.Setenv(HomeVar, prior)
		}
	}()

	home, err := Home()
	require.NoError(t, err)
	assert.Contains(t, home, ".codex")
}

func TestHome_UsesExplicitValue(t *testing.T) {
	prior, had := os.LookupEnv(HomeVar)
	require.NoError(t, os.Setenv(HomeVar, "/tmp/custom-codex-home"))
	defer func() {
		if had {
			os.Setenv(HomeVar, prior)
		} else {
			os.Unsetenv(HomeVar)
		}
	}()

	home, err := Home()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-codex-home", home)
}
