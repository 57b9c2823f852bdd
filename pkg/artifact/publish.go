package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPublish indicates the artifact destination rejected a write.
var ErrPublish = errors.New("publish failed")

// Publish writes the set under dir so each file is retrievable by name.
// Per-target files land before controller.json, and every file goes
// through write-to-temp-then-rename, so a reader that keys off the
// shared artifact never sees a serial without its device file. Stale
// device files from earlier batches are swept afterwards.
func Publish(set *Set, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	for serial, data := range set.Devices {
		if err := writeFile(filepath.Join(dir, DeviceName(serial)), data); err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(dir, SharedName), set.Shared); err != nil {
		return err
	}
	return sweepStale(set, dir)
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return nil
}

func sweepStale(set *Set, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "device_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		serial := strings.TrimSuffix(strings.TrimPrefix(name, "device_"), ".json")
		if _, ok := set.Devices[serial]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("%w: %v", ErrPublish, err)
		}
	}
	return nil
}
