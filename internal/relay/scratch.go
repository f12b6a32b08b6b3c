package relay

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// scratchName builds a collision-resistant name for a scratch file:
// timestamp plus random suffix, keeping the original extension so the
// sniffer has something to work with. Concurrent requests never collide.
func scratchName(originalName string, unixNano int64) string {
	suffix := rand.Int63n(1_000_000_000)
	return fmt.Sprintf("file-%d-%d%s", unixNano, suffix, filepath.Ext(originalName))
}

// ensureScratchDir creates the scratch directory if it does not exist.
func ensureScratchDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir %q: %w", dir, err)
	}
	return nil
}
