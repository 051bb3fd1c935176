package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
)

// FileBackend stores contacts and sources as JSON arrays in two files.
// Writes replace the whole file atomically.
type FileBackend struct {
	ContactsPath string
	SourcesPath  string

	mu sync.Mutex
}

// NewFileBackend derives the sources file from the contacts file:
// contacts.json pairs with contacts_sources.json.
func NewFileBackend(contactsPath string) *FileBackend {
	ext := filepath.Ext(contactsPath)
	return &FileBackend{
		ContactsPath: contactsPath,
		SourcesPath:  strings.TrimSuffix(contactsPath, ext) + "_sources" + ext,
	}
}

func (f *FileBackend) LoadContacts(context.Context) ([]contact.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadContacts()
}

func (f *FileBackend) loadContacts() ([]contact.Contact, error) {
	var out []contact.Contact
	if err := readJSON(f.ContactsPath, &out); err != nil {
		return nil, err
	}
	// Hand-edited files may omit fingerprints; saves match on them.
	for i := range out {
		if out[i].Fingerprint == "" {
			out[i].Fingerprint = contact.Fingerprint(out[i].Name, out[i].Website, out[i].Email)
		}
	}
	return out, nil
}

func (f *FileBackend) SaveContact(_ context.Context, c contact.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.loadContacts()
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].Fingerprint == c.Fingerprint {
			all[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, c)
	}
	return writeJSONAtomic(f.ContactsPath, all)
}

func (f *FileBackend) SaveContacts(_ context.Context, cs []contact.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.loadContacts()
	if err != nil {
		return err
	}
	pos := make(map[string]int, len(all))
	for i, c := range all {
		pos[c.Fingerprint] = i
	}
	for _, c := range cs {
		if i, ok := pos[c.Fingerprint]; ok {
			all[i] = c
			continue
		}
		pos[c.Fingerprint] = len(all)
		all = append(all, c)
	}
	return writeJSONAtomic(f.ContactsPath, all)
}

func (f *FileBackend) LoadSources(context.Context) ([]sources.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sources.Tracker
	if err := readJSON(f.SourcesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FileBackend) SaveSource(_ context.Context, t sources.Tracker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []sources.Tracker
	if err := readJSON(f.SourcesPath, &all); err != nil {
		return err
	}
	found := false
	for i := range all {
		if all[i].URL == t.URL {
			all[i] = t
			found = true
		}
	}
	if !found {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].URL < all[j].URL })
	return writeJSONAtomic(f.SourcesPath, all)
}

// readJSON decodes path into v strictly. A missing file leaves v untouched.
func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

func writeJSONAtomic(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	_ = os.Remove(bak)
	_ = os.Rename(path, bak)
	return os.Rename(tmp, path)
}
