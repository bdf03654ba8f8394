// Package items loads the otpwatch item file.
package items

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	goOTP "github.com/MrEthical07/goOTP"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by File.Get for an unknown item ID.
var ErrNotFound = errors.New("item not found")

// Item is one stored TOTP secret. Either Secret or URI must be set; a URI
// supplies its own secret, digits and period.
type Item struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	Kind   string `yaml:"kind,omitempty"` // "login" (default) or "authenticator"
	Secret string `yaml:"secret,omitempty"`
	URI    string `yaml:"uri,omitempty"`
	Digits int    `yaml:"digits,omitempty"`
	Period int    `yaml:"period,omitempty"`
}

// File is the on-disk item list.
type File struct {
	Items []Item `yaml:"items"`
}

// Resolved is an item ready for code derivation.
type Resolved struct {
	ID     string
	Label  string
	Kind   goOTP.ItemKind
	Secret string
	Params goOTP.Params
}

// ParamsFunc resolves the effective parameters of an item kind, normally
// (*goOTP.Engine).Params.
type ParamsFunc func(kind goOTP.ItemKind, override goOTP.Params) (goOTP.Params, error)

// Resolve validates the item and returns its secret and effective parameters.
// A nil params resolves against the package defaults.
func (it Item) Resolve(params ParamsFunc) (Resolved, error) {
	if params == nil {
		params = goOTP.ItemKind.Params
	}
	label := it.Name
	if label == "" {
		label = it.ID
	}
	if it.URI != "" {
		key, err := goOTP.ParseKeyURI(it.URI)
		if err != nil {
			return Resolved{}, fmt.Errorf("item %s: %w", it.ID, err)
		}
		if it.Name == "" && key.Issuer != "" {
			label = key.Issuer + ":" + key.AccountName
		}
		p, err := params(key.Kind(), key.Params)
		if err != nil {
			return Resolved{}, fmt.Errorf("item %s: %w", it.ID, err)
		}
		return Resolved{ID: it.ID, Label: label, Kind: key.Kind(), Secret: key.Secret, Params: p}, nil
	}

	if it.Secret == "" {
		return Resolved{}, fmt.Errorf("item %s: %w: no secret or uri", it.ID, goOTP.ErrInvalidSecret)
	}
	if len(goOTP.DecodeSecret(it.Secret)) == 0 {
		return Resolved{}, fmt.Errorf("item %s: %w", it.ID, goOTP.ErrInvalidSecret)
	}
	kind, err := goOTP.ParseItemKind(it.Kind)
	if err != nil {
		return Resolved{}, fmt.Errorf("item %s: %w", it.ID, err)
	}
	p, err := params(kind, goOTP.Params{Digits: it.Digits, Period: it.Period})
	if err != nil {
		return Resolved{}, fmt.Errorf("item %s: %w", it.ID, err)
	}
	return Resolved{ID: it.ID, Label: label, Kind: kind, Secret: it.Secret, Params: p}, nil
}

// Get returns the item with the given ID.
func (f *File) Get(id string) (Item, error) {
	for _, it := range f.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// IDs returns the item IDs in sorted order.
func (f *File) IDs() []string {
	ids := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		ids = append(ids, it.ID)
	}
	sort.Strings(ids)
	return ids
}

// Load reads an item file. A missing file yields an empty list.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Items))
	for i, it := range f.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return f, nil
}

// Save writes f to path with owner-only permissions, creating parent
// directories as needed.
func Save(f *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Dir returns the default item directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".otpwatch"), nil
}

// Path returns the item file path, respecting OTPWATCH_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("OTPWATCH_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "items.yaml"), nil
}
