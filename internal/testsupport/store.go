package testsupport

import (
	"testing"

	"subembed/internal/config"
	"subembed/internal/users"
)

// MustOpenUserStore opens a users.Store for tests and registers cleanup.
func MustOpenUserStore(t testing.TB, cfg *config.Config) *users.Store {
	t.Helper()

	store, err := users.Open(cfg)
	if err != nil {
		t.Fatalf("users.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
