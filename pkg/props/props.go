// Package props persists values in a flat key=value properties file.
//
// Update rewrites the whole file on every call. The package does no locking:
// concurrent writers to the same file may lose updates.
package props

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/loykin/apicontract/internal/util"
	"github.com/magiconair/properties"
)

// EnvPrefix is the prefix of environment variables that override file values.
const EnvPrefix = "APICONTRACT"

// Load reads a properties file. A missing file yields an empty set.
func Load(path string) (*properties.Properties, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return properties.NewProperties(), nil
		}
		return nil, fmt.Errorf("load properties %s: %w", path, err)
	}
	return p, nil
}

// Update sets key to value and writes the file back, creating it and its
// directory when missing. Existing keys keep their order.
func Update(path, key, value string) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	if _, _, err := p.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write properties %s: %w", path, err)
	}
	return nil
}

// Lookup returns the value for key. The environment variable
// APICONTRACT_<KEY> (dots and dashes as underscores) takes precedence over
// the file.
func Lookup(path, key string) (string, bool, error) {
	if v, ok := os.LookupEnv(util.EnvKey(EnvPrefix, key)); ok {
		return v, true, nil
	}
	p, err := Load(path)
	if err != nil {
		return "", false, err
	}
	v, ok := p.Get(key)
	return v, ok, nil
}
