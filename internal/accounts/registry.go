// Package accounts resolves the account groups that share definitions, catalogs and a
// central notification account.
package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnknownAccount is returned when no group lists the account as a streamer.
var ErrUnknownAccount = errors.New("unknown account")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Group is one entry of the accounts configuration.
type Group struct {
	Central   string   `yaml:"central" validate:"required"`
	Streamers []string `yaml:"streamers" validate:"required,min=1,dive,required"`
	Catalogs  []string `yaml:"catalogs" validate:"dive,required"`
}

// Registry answers account lookups against the configured groups.
type Registry struct {
	groups []Group
}

// Parse decodes the accounts configuration. JSON documents are accepted as well.
func Parse(data []byte) (*Registry, error) {
	var groups []Group
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("cannot parse accounts configuration: %w", err)
	}

	for i := range groups {
		if err := validate.Struct(groups[i]); err != nil {
			return nil, fmt.Errorf("invalid accounts group %d: %w", i, err)
		}
	}

	return &Registry{groups: groups}, nil
}

// Load reads and parses the accounts configuration at path in fsys.
func Load(fsys fs.FS, path string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read accounts configuration %q: %w", path, err)
	}
	return Parse(data)
}

// Streamers returns every streamer account of the account's group.
func (r *Registry) Streamers(account string) ([]string, error) {
	g, err := r.group(account)
	if err != nil {
		return nil, err
	}
	return slices.Clone(g.Streamers), nil
}

// Central returns the central account of the account's group.
func (r *Registry) Central(account string) (string, error) {
	g, err := r.group(account)
	if err != nil {
		return "", err
	}
	return g.Central, nil
}

// Catalogs returns the catalog accounts of the account's group.
func (r *Registry) Catalogs(account string) ([]string, error) {
	g, err := r.group(account)
	if err != nil {
		return nil, err
	}
	return slices.Clone(g.Catalogs), nil
}

func (r *Registry) group(account string) (*Group, error) {
	for i := range r.groups {
		if slices.Contains(r.groups[i].Streamers, account) {
			return &r.groups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account)
}
