package provider

import (
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Manager decides which providers a lane should try, in which batches.
// Providers within a batch are attempted in parallel; a later batch is
// attempted only when all earlier batches yield zero usable results.
type Manager struct {
	tables          map[retrieval.Lane]Table
	credentials     map[string]string
	keylessFallback bool
}

// NewManager creates a provider manager from static lane tables and the
// configured credentials.
func NewManager(tables map[retrieval.Lane]Table, credentials map[string]string, keylessFallback bool) *Manager {
	if credentials == nil {
		credentials = map[string]string{}
	}
	return &Manager{
		tables:          tables,
		credentials:     credentials,
		keylessFallback: keylessFallback,
	}
}

// Order returns the provider batches for a lane, keyed providers before
// keyless ones. Within a batch the declaration order is preserved so retries
// are reproducible.
//
// Batch 1 is the keyed providers that actually have a credential configured.
// When the keyless fallback is enabled, the keyless providers form the next
// batch; with no usable keyed providers they are the only batch. An empty
// return disables the lane.
func (m *Manager) Order(lane retrieval.Lane) [][]string {
	table, ok := m.tables[lane]
	if !ok {
		return nil
	}

	var keyed []string
	for _, name := range table.Keyed {
		if m.credentials[name] != "" {
			keyed = append(keyed, name)
		}
	}

	var batches [][]string
	if len(keyed) > 0 {
		batches = append(batches, keyed)
	}
	if m.keylessFallback && len(table.Keyless) > 0 {
		batches = append(batches, append([]string(nil), table.Keyless...))
	}

	return batches
}

// HasCredential reports whether the named provider has a configured key.
func (m *Manager) HasCredential(name string) bool {
	return m.credentials[name] != ""
}
