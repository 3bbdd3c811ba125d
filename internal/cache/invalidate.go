package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

type entry struct {
	path string
	mod  time.Time
}

func listEntries(dir string) ([]entry, error) {
	var out []entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, entry{path: path, mod: info.ModTime().UTC()})
		return nil
	})
	return out, err
}

// PurgeLLMCacheByAge removes entries whose modification time is older than
// maxAge. It walks subdirectories created by Sub.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	entries, err := listEntries(dir)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	removed := 0
	for _, e := range entries {
		if now.Sub(e.mod) <= maxAge {
			continue
		}
		if os.Remove(e.path) == nil {
			removed++
		}
	}
	return removed, nil
}

// EnforceLLMCacheLimits keeps at most maxCount entries, evicting the least
// recently used first. maxAge, when positive, is applied before the count.
func EnforceLLMCacheLimits(dir string, maxAge time.Duration, maxCount int) (int, error) {
	removed, err := PurgeLLMCacheByAge(dir, maxAge)
	if err != nil || maxCount <= 0 {
		return removed, err
	}
	entries, err := listEntries(dir)
	if err != nil {
		return removed, err
	}
	if len(entries) <= maxCount {
		return removed, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mod.Before(entries[j].mod) })
	for _, e := range entries[:len(entries)-maxCount] {
		if os.Remove(e.path) == nil {
			removed++
		}
	}
	return removed, nil
}
