package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/librarydesk/librarydesk-server/internal/domain"
)

// SearchIndex wraps a Bleve index holding books and members.
//
// All public methods are safe for concurrent use. The mutex only guards
// against Reindex swapping the index out from under readers; Bleve itself
// serializes writes.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup drops the index so it is rebuilt from the store.
const mappingVersion = "1"

// batchSize bounds memory during a full reindex.
const batchSize = 500

// NewSearchIndex opens the index under opts.DataPath or creates it.
// A corrupted index or one built with an older mapping is removed and
// recreated empty; NeedsReindex then reports true.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "library.bleve")
	versionPath := filepath.Join(opts.DataPath, "library.version")

	var index bleve.Index
	var err error

	stale := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "new_version", mappingVersion)
			stale = true
		case string(existing) != mappingVersion:
			logger.Info("search index mapping version changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			stale = true
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, recreating", "path", indexPath, "error", err)
				stale = true
			}
		}
	}

	if stale {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces a book document.
func (s *SearchIndex) IndexBook(b *domain.Book) error {
	return s.put(BookToSearchDocument(b))
}

// IndexMember adds or replaces a member document.
func (s *SearchIndex) IndexMember(m *domain.Member) error {
	return s.put(MemberToSearchDocument(m))
}

func (s *SearchIndex) put(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// Remove deletes a document by entity ID. Missing IDs are ignored.
func (s *SearchIndex) Remove(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// NeedsReindex reports whether the index is empty.
func (s *SearchIndex) NeedsReindex() bool {
	n, err := s.DocumentCount()
	return err != nil || n == 0
}

// Reindex drops the index and fills it with books and members in batches.
// Readers block for the duration.
func (s *SearchIndex) Reindex(books []*domain.Book, members []*domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	docs := make([]*SearchDocument, 0, len(books)+len(members))
	for _, b := range books {
		docs = append(docs, BookToSearchDocument(b))
	}
	for _, m := range members {
		docs = append(docs, MemberToSearchDocument(m))
	}

	var errs []error
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				errs = append(errs, fmt.Errorf("batch index %s: %w", doc.ID, err))
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.logger.Info("rebuilt search index",
		"path", s.path,
		"books", len(books),
		"members", len(members),
	)
	return errors.Join(errs...)
}
