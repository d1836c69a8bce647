// Package phonebook maps contact labels to raw phone numbers from a YAML file
//
//	contacts:
//	  - name: Guardia Ana
//	    phone: "+34 600 123 456"
package phonebook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"callrota/internal/platform/logger"
)

type entry struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

type fileDoc struct {
	Contacts []entry `yaml:"contacts"`
}

// File is a phonebook backed by one YAML file; safe for concurrent use
type File struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// Open loads path once; call Watch to follow edits
func Open(path string) (*File, error) {
	f := &File{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes a phonebook document; blank names or phones are skipped, later duplicates win
func Parse(b []byte) (map[string]string, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("phonebook: decode: %w", err)
	}
	out := make(map[string]string, len(doc.Contacts))
	for _, e := range doc.Contacts {
		name, phone := strings.TrimSpace(e.Name), strings.TrimSpace(e.Phone)
		if name == "" || phone == "" {
			continue
		}
		out[name] = phone
	}
	return out, nil
}

// Reload re-reads the file; on error the previous entries stay in place
func (f *File) Reload() error {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("phonebook: read %s: %w", f.path, err)
	}
	entries, err := Parse(b)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
	return nil
}

// Lookup returns the raw phone for an exact label match
func (f *File) Lookup(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.entries[strings.TrimSpace(name)]
	return p, ok
}

// Len is the number of loaded entries
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Watch reloads on writes until ctx ends
// The directory is watched so editors that replace the file by rename are seen too
func (f *File) Watch(ctx context.Context) error {
	log := logger.Named("phonebook")
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("phonebook: watcher: %w", err)
	}
	defer w.Close()

	dir, base := filepath.Split(f.path)
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("phonebook: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.Reload(); err != nil {
				log.Warn().Err(err).Msg("phonebook reload failed; keeping previous entries")
				continue
			}
			log.Info().Int("entries", f.Len()).Msg("phonebook reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("phonebook watcher error")
		}
	}
}
