package routing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Store persists the routing Document as a single pretty-printed JSON
// file. The document is read wholesale and overwritten wholesale; there
// are no partial writes. Writers are serialized by an exclusive lock held
// for the duration of the write so concurrent saves cannot interleave and
// truncate the file.
//
// The store is process-local. Running two bot processes against the same
// file is not supported.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With("component", "routing.store"),
	}
}

// Path returns the on-disk location of the routing document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document from disk. A missing, empty or unparseable file
// degrades to an empty document: availability of the bot outranks strict
// consistency here, so corruption is logged at error level and never
// surfaced as a failure.
func (s *Store) Load() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("routing document not found, starting empty", "path", s.path)
		} else {
			s.logger.Error("reading routing document", "path", s.path, "err", err)
		}
		return Document{}
	}

	if len(data) == 0 {
		s.logger.Error("routing document is empty, starting empty", "path", s.path)
		return Document{}
	}

	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("parsing routing document, starting empty", "path", s.path, "err", err)
		return Document{}
	}

	return doc
}

// Save serializes the entire document and overwrites the file.
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling routing document: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing routing document: %w", err)
	}

	return nil
}
