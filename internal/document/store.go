package document

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"peopleops/internal/logging"
	"peopleops/internal/types"
)

// Store holds extracted document chunks, persisted as JSON next to the
// upload directory. All mutating operations save synchronously with a
// write-temp-then-rename so a crash never leaves a torn file.
type Store struct {
	mu        sync.RWMutex
	uploadDir string
	storePath string
	sizeWords int
	overlap   int

	docs     map[string]storedDoc // keyed by document name
	onChange func()               // notified after every persisted index change
	onSave   func()               // test hook
}

// storedDoc is the on-disk shape for one indexed document.
type storedDoc struct {
	Name    string        `json:"name"`
	Hash    string        `json:"hash"`
	AddedAt time.Time     `json:"added_at"`
	Chunks  []types.Chunk `json:"chunks"`
}

// storeFile is the on-disk shape of chunks.json.
type storeFile struct {
	Version   string      `json:"version"`
	Documents []storedDoc `json:"documents"`
}

// NewStore loads (or creates) a chunk store. uploadDir is created if absent.
func NewStore(uploadDir, storePath string, sizeWords, overlap int) (*Store, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create document store directory: %w", err)
	}

	s := &Store{
		uploadDir: uploadDir,
		storePath: storePath,
		sizeWords: sizeWords,
		overlap:   overlap,
		docs:      make(map[string]storedDoc),
	}
	if err := s.load(); err != nil {
		// Corrupt store starts empty rather than blocking startup.
		logging.DocsWarn("Chunk store unreadable, starting empty: %v", err)
		s.docs = make(map[string]storedDoc)
	}
	return s, nil
}

// UploadDir returns the directory watched for document files.
func (s *Store) UploadDir() string {
	return s.uploadDir
}

// OnChange registers fn to run after every persisted index change, whatever
// the mutation path (HTTP upload, watcher event, reindex). The retriever
// subscribes its cache invalidation here. fn runs with the store lock held,
// so it must not call back into the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("failed to parse chunk store: %w", err)
	}
	for _, d := range sf.Documents {
		s.docs[d.Name] = d
	}
	logging.Docs("Loaded chunk store: %d documents", len(s.docs))
	return nil
}

// save persists the store atomically. Caller must hold the write lock.
func (s *Store) save() error {
	sf := storeFile{Version: "1.0"}
	for _, d := range s.docs {
		sf.Documents = append(sf.Documents, d)
	}
	sort.Slice(sf.Documents, func(i, j int) bool {
		return sf.Documents[i].Name < sf.Documents[j].Name
	})

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunk store: %w", err)
	}

	tmp := s.storePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write chunk store: %w", err)
	}
	if err := os.Rename(tmp, s.storePath); err != nil {
		return fmt.Errorf("failed to replace chunk store: %w", err)
	}
	if s.onChange != nil {
		s.onChange()
	}
	if s.onSave != nil {
		s.onSave()
	}
	return nil
}

// hashFile returns the MD5 hex digest of a file's content.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Add indexes a document file. Identical content (same MD5) is a no-op;
// changed content replaces the document's chunks. Returns the number of
// chunks stored.
func (s *Store) Add(path string) (int, error) {
	name := filepath.Base(path)
	if !Supported(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}

	hash, err := hashFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[name]; ok && existing.Hash == hash {
		logging.DocsDebug("Skipping %s: content unchanged", name)
		return len(existing.Chunks), nil
	}

	text, err := ExtractText(path)
	if err != nil {
		return 0, err
	}
	chunks := ChunkText(name, text, s.sizeWords, s.overlap)
	if len(chunks) == 0 {
		logging.DocsWarn("No text extracted from %s", name)
	}

	s.docs[name] = storedDoc{
		Name:    name,
		Hash:    hash,
		AddedAt: time.Now().UTC(),
		Chunks:  chunks,
	}
	if err := s.save(); err != nil {
		return 0, err
	}

	logging.Docs("Indexed %s: %d chunks", name, len(chunks))
	return len(chunks), nil
}

// Remove drops a document and its chunks from the store. Removing an
// unknown document is a no-op.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[name]; !ok {
		return nil
	}
	delete(s.docs, name)
	if err := s.save(); err != nil {
		return err
	}
	logging.Docs("Removed %s from index", name)
	return nil
}

// List returns indexed documents sorted by name.
func (s *Store) List() []types.DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.DocumentInfo, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, types.DocumentInfo{
			Name:    d.Name,
			Hash:    d.Hash,
			Chunks:  len(d.Chunks),
			AddedAt: d.AddedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Chunks returns a copy of every chunk across all documents.
func (s *Store) Chunks() []types.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Chunk
	for _, d := range s.docs {
		out = append(out, d.Chunks...)
	}
	return out
}

// Count returns (documents, chunks).
func (s *Store) Count() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := 0
	for _, d := range s.docs {
		chunks += len(d.Chunks)
	}
	return len(s.docs), chunks
}

// Reindex scans the upload directory, adding new or changed files and
// dropping documents whose files are gone. Unreadable files become
// warnings, not errors.
func (s *Store) Reindex() ([]string, error) {
	timer := logging.StartTimer(logging.CategoryDocs, "Reindex")
	defer timer.StopWithInfo()

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var warnings []string
	present := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !Supported(entry.Name()) {
			warnings = append(warnings, fmt.Sprintf("skipped %s: unsupported type", entry.Name()))
			continue
		}
		present[entry.Name()] = true
		if _, err := s.Add(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to index %s: %v", entry.Name(), err))
		}
	}

	// Drop documents whose source files disappeared.
	for _, info := range s.List() {
		if !present[info.Name] {
			if err := s.Remove(info.Name); err != nil {
				warnings = append(warnings, fmt.Sprintf("failed to remove %s: %v", info.Name, err))
			}
		}
	}

	return warnings, nil
}
