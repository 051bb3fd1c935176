package store

import (
	"context"
	"sync"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
)

// MemoryBackend keeps everything in process memory.
type MemoryBackend struct {
	mu       sync.Mutex
	contacts []contact.Contact
	sources  map[string]sources.Tracker

	// SaveErr, when set, is returned by every save.
	SaveErr error
	// Saves counts successful contact saves.
	Saves int
}

// NewMemoryBackend returns a backend preloaded with cs.
func NewMemoryBackend(cs ...contact.Contact) *MemoryBackend {
	m := &MemoryBackend{sources: make(map[string]sources.Tracker)}
	for _, c := range cs {
		m.contacts = append(m.contacts, c.Clone())
	}
	return m
}

func (m *MemoryBackend) LoadContacts(context.Context) ([]contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contact.Contact, len(m.contacts))
	for i, c := range m.contacts {
		out[i] = c.Clone()
	}
	return out, nil
}

func (m *MemoryBackend) SaveContact(_ context.Context, c contact.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	for i := range m.contacts {
		if m.contacts[i].Fingerprint == c.Fingerprint {
			m.contacts[i] = c.Clone()
			return nil
		}
	}
	m.contacts = append(m.contacts, c.Clone())
	return nil
}

func (m *MemoryBackend) SaveContacts(ctx context.Context, cs []contact.Contact) error {
	for _, c := range cs {
		if err := m.SaveContact(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) LoadSources(context.Context) ([]sources.Tracker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sources.Tracker, 0, len(m.sources))
	for _, t := range m.sources {
		out = append(out, t)
	}
	return out, nil
}

func (m *MemoryBackend) SaveSource(_ context.Context, t sources.Tracker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.sources[t.URL] = t
	return nil
}
