package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/postprocessors/chunker"
	"github.com/custodia-labs/clause/internal/postprocessors/tagbalance"
)

// Processor names.
const (
	NameChunker    = "chunker"
	NameTagBalance = "tag_balance"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register(NameChunker, buildChunker)
	r.Register(NameTagBalance, func(map[string]any) (driven.ChunkProcessor, error) {
		return tagbalance.New(), nil
	})
}

// DefaultProcessors returns the processor chain for a chunker kind. A
// remote chunker already produces records, so only repairs run after it.
func DefaultProcessors(kind domain.PartitionerKind) []string {
	if kind == domain.PartitionerUnstructured {
		return []string{NameTagBalance}
	}
	return []string{NameChunker, NameTagBalance}
}

// NewChunker builds the chunking chain from settings. remote is the
// external chunker used when settings select it, otherwise ignored.
func NewChunker(s domain.ChunkingSettings, remote driven.Chunker) (*Pipeline, error) {
	if s.Kind == domain.PartitionerUnstructured && remote == nil {
		return nil, fmt.Errorf("%w: unstructured chunker is not configured", domain.ErrConfiguration)
	}

	r := NewRegistry()
	RegisterDefaults(r)

	names := s.Processors
	if len(names) == 0 {
		names = DefaultProcessors(s.Kind)
	}

	p, err := r.BuildPipeline(names, map[string]map[string]any{
		NameChunker: {
			"max_characters": s.MaxCharacters,
			"overlap":        s.Overlap,
		},
	})
	if err != nil {
		return nil, err
	}
	if s.Kind == domain.PartitionerUnstructured {
		p.WithBase(remote)
	}
	return p, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_characters (int): Chunk size limit (default: 3000)
//   - overlap (int): Overlap between split pieces (default: 150)
func buildChunker(cfg map[string]any) (driven.ChunkProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "max_characters"); size > 0 {
			opts = append(opts, chunker.WithMaxCharacters(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
