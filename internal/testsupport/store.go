package testsupport

import (
	"context"
	"testing"

	"bilicache/internal/config"
	"bilicache/internal/queue"
)

// MustOpenStore opens a job store for the configuration and closes it when
// the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close job store: %v", err)
		}
	})
	return store
}
