package tilecache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/drone-geolocator/internal/logging"
)

// Disk persistence is best-effort: a failed write or read never fails the
// lookup, it only costs a refetch later. Freshness of on-disk tiles is taken
// from the file modification time.

func (c *Cache) diskPath(key Key) string {
	return filepath.Join(c.dir, key.String()+".img")
}

func (c *Cache) loadFromDisk(key Key) ([]byte, time.Time, bool) {
	if c.dir == "" {
		return nil, time.Time{}, false
	}
	path := c.diskPath(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Warn(context.Background(), "tile cache read failed",
			logging.String("path", path),
			logging.String("error", err.Error()),
		)
		return nil, time.Time{}, false
	}
	return data, info.ModTime(), true
}

func (c *Cache) saveToDisk(key Key, data []byte) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn(context.Background(), "tile cache dir create failed",
			logging.String("dir", c.dir),
			logging.String("error", err.Error()),
		)
		return
	}
	path := c.diskPath(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.log.Warn(context.Background(), "tile cache write failed",
			logging.String("path", path),
			logging.String("error", err.Error()),
		)
	}
}
