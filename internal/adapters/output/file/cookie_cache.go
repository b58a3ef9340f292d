package file

import (
	"errors"
	"os"
	"path/filepath"

	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure CookieCache implements the output port
var _ output.CookieCache = (*CookieCache)(nil)

// CookieCache struct - Output adapter persisting the last-good cookie set
// for the "local" acquisition source. Written with a tighter mode since the
// content is a credential.
type CookieCache struct {
	path string
}

// NewCookieCache creates a cookie cache rooted at dir.
func NewCookieCache(dir string) *CookieCache {
	return &CookieCache{path: filepath.Join(dir, "cookies.json")}
}

// Load reads the cached cookie set; a missing file returns nil, nil.
func (c *CookieCache) Load() (map[string]string, error) {
	var cookies map[string]string
	if err := readJSON(c.path, &cookies); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return cookies, nil
}

// Save atomically replaces the cached cookie set and restricts the file to
// the owning user.
func (c *CookieCache) Save(cookies map[string]string) error {
	if err := writeJSONAtomic(c.path, cookies); err != nil {
		return err
	}
	return os.Chmod(c.path, 0o600)
}
