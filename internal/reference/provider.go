package reference

import (
	"sync/atomic"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

// Provider owns the process lifetime reference table. The table is loaded
// once and shared read-only across concurrent callers; Invalidate rebuilds
// it off to the side and swaps the pointer only on success, so in-flight
// readers never observe a partial table.
type Provider struct {
	path    string
	current atomic.Pointer[Table]
}

// NewProvider loads the reference source and returns a provider holding it.
func NewProvider(path string) (*Provider, error) {
	table, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	p := &Provider{path: path}
	p.current.Store(table)
	return p, nil
}

// Table returns the current table. Never nil after a successful NewProvider.
func (p *Provider) Table() *Table {
	return p.current.Load()
}

// Invalidate reloads the source. On failure the previous table stays active.
func (p *Provider) Invalidate() error {
	table, err := LoadFile(p.path)
	if err != nil {
		return errors.Newf("reloading reference table: %w", err).
			Component("reference").
			Category(errors.CategoryReferenceLoad).
			Context("path", p.path).
			Build()
	}
	p.current.Store(table)
	getLogger().Info("reference table reloaded", "rows", table.Len())
	return nil
}
