package export

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"bilicache/internal/config"
)

// acquireLock takes the single-instance export lock. Two concurrent batches
// would race on destination names and the job store.
func acquireLock(cfg *config.Config) (*flock.Flock, error) {
	lockPath := filepath.Join(cfg.Paths.LogDir, "export.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire export lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another bilicache export is already running (lock %s)", lockPath)
	}
	return lock, nil
}
