// Package secrets keeps credential material out of every surface
// ForgeShift produces: errors, logs, progress events, and reports.
//
// The Vault holds the run's live token values so they can be scrubbed
// from arbitrary text by exact match. Pattern scrubbing in Redact
// catches credentials the vault never saw, such as tokens embedded in
// git remote URLs.
package secrets

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Loader retrieves secrets from a source (env vars, file, remote vault).
type Loader func() (map[string]string, error)

// EnvLoader returns a Loader that reads the given environment
// variables. Missing or empty variables are omitted from the result.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Keys returns the names of all stored secrets.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}

// Redacted returns a masked preview of the value under key: its first
// two characters and a **** tail. Values of four characters or fewer
// are fully masked. Missing keys return "".
func (v *Vault) Redacted(key string) string {
	v.mu.RLock()
	val := v.values[key]
	v.mu.RUnlock()
	if val == "" {
		return ""
	}
	return mask(val)
}

// RedactString replaces every vault value found in s with its masked
// form, then applies the pattern scrub from Redact. Values shorter
// than four characters are left alone so common substrings survive.
func (v *Vault) RedactString(s string) string {
	v.mu.RLock()
	vals := make([]string, 0, len(v.values))
	for _, val := range v.values {
		if len(val) >= 4 {
			vals = append(vals, val)
		}
	}
	v.mu.RUnlock()

	// Longest value first, so a secret that contains another secret is
	// masked whole instead of around the shorter match.
	sort.Slice(vals, func(i, j int) bool { return len(vals[i]) > len(vals[j]) })
	for _, val := range vals {
		s = strings.ReplaceAll(s, val, mask(val))
	}
	return Redact(s)
}

func mask(val string) string {
	if len(val) <= 4 {
		return "****"
	}
	return val[:2] + "****"
}
