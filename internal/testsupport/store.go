package testsupport

import (
	"testing"

	"easel/internal/config"
	"easel/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
