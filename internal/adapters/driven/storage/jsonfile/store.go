// Package jsonfile stores pipeline artifacts as JSON files on disk.
//
// Element and chunk collections are validated against embedded JSON Schemas
// on load, so a truncated or foreign file fails before any oracle call.
// Writes go to a temporary file in the same directory and are renamed into
// place, and writes to the same path are serialised.
package jsonfile

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema resource URLs. The documents are registered up front, so nothing is fetched.
const (
	elementsSchema = "https://clause.local/schemas/elements.json"
	chunksSchema   = "https://clause.local/schemas/chunks.json"
)

// Ensure Store implements the interface.
var _ driven.ElementStore = (*Store)(nil)

// Store is a file-backed driven.ElementStore.
type Store struct {
	locks    sync.Map // path -> *sync.Mutex
	elements *jsonschema.Schema
	chunks   *jsonschema.Schema
}

// NewStore compiles the embedded schemas.
func NewStore() (*Store, error) {
	compiler := jsonschema.NewCompiler()
	for name, file := range map[string]string{
		elementsSchema: "schemas/elements.json",
		chunksSchema:   "schemas/chunks.json",
	} {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
	}

	elements, err := compiler.Compile(elementsSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling element schema: %w", err)
	}
	chunks, err := compiler.Compile(chunksSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling chunk schema: %w", err)
	}

	return &Store{elements: elements, chunks: chunks}, nil
}

// LoadElements reads and validates an element collection.
func (s *Store) LoadElements(ctx context.Context, path string) ([]domain.Element, error) {
	var elements []domain.Element
	if err := s.load(ctx, path, s.elements, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// SaveElements replaces an element collection atomically.
func (s *Store) SaveElements(ctx context.Context, path string, elements []domain.Element) error {
	if elements == nil {
		elements = []domain.Element{}
	}
	return s.SaveJSON(ctx, path, elements)
}

// LoadChunkRecords reads and validates a chunk record collection.
func (s *Store) LoadChunkRecords(ctx context.Context, path string) ([]domain.ChunkRecord, error) {
	var records []domain.ChunkRecord
	if err := s.load(ctx, path, s.chunks, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveChunkRecords replaces a chunk record collection atomically.
func (s *Store) SaveChunkRecords(ctx context.Context, path string, records []domain.ChunkRecord) error {
	if records == nil {
		records = []domain.ChunkRecord{}
	}
	return s.SaveJSON(ctx, path, records)
}

// SaveJSON writes v as indented JSON. HTML characters are not escaped so
// tag markers stay readable in the file.
func (s *Store) SaveJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	return writeAtomic(path, buf.Bytes())
}

func (s *Store) load(ctx context.Context, path string, schema *jsonschema.Schema, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := s.lock(path)
	mu.Lock()
	data, err := os.ReadFile(path)
	mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var inst any
	if err := json.Unmarshal(data, &inst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSchemaViolation, path, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSchemaViolation, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSchemaViolation, path, err)
	}
	return nil
}

func (s *Store) lock(path string) *sync.Mutex {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	mu, _ := s.locks.LoadOrStore(abs, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
