package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clause/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLM implements driven.LLMService with a scripted reply function.
type mockLLM struct {
	mu    sync.Mutex
	reply func(messages []driven.ChatMessage, opts driven.ChatOptions) (string, error)
	calls []mockCall
}

type mockCall struct {
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{messages: messages, opts: opts})
	m.mu.Unlock()
	if m.reply == nil {
		return "", errors.New("no reply scripted")
	}
	return m.reply(messages, opts)
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// keywordEmbedding implements driven.EmbeddingService with bag-of-keyword
// vectors, so similarity follows shared vocabulary.
type keywordEmbedding struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   int
	failAll bool
}

var embeddingKeywords = []string{
	"agreement", "license", "payment", "fee", "€", "euro", "licensor", "licensee", "territory", "date",
}

func (m *keywordEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failAll || m.fail[text] {
		return nil, domain.ErrEmbedding
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(embeddingKeywords)+1)
	for i, k := range embeddingKeywords {
		vec[i] = float32(strings.Count(lower, k))
	}
	vec[len(embeddingKeywords)] = 0.1
	return vec, nil
}

func (m *keywordEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *keywordEmbedding) Dimensions() int              { return len(embeddingKeywords) + 1 }
func (m *keywordEmbedding) ModelName() string            { return "keyword" }
func (m *keywordEmbedding) Ping(_ context.Context) error { return nil }
func (m *keywordEmbedding) Close() error                 { return nil }

// stubPartitioner implements driven.Partitioner with fixed elements.
type stubPartitioner struct {
	elements []domain.Element
	err      error
	calls    int
}

func (p *stubPartitioner) Name() string { return "stub" }

func (p *stubPartitioner) Partition(_ context.Context, _ string) ([]domain.Element, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]domain.Element, len(p.elements))
	copy(out, p.elements)
	return out, nil
}

// stubInspector implements driven.PageInspector.
type stubInspector struct {
	pages []driven.PageSize
	err   error
}

func (s *stubInspector) Pages(_ context.Context, _ string) ([]driven.PageSize, error) {
	return s.pages, s.err
}

// mockEnricher implements driving.EnrichmentService.
type mockEnricher struct {
	err   error
	calls int
}

func (m *mockEnricher) EnrichFile(_ context.Context, _ string) (domain.EnrichReport, error) {
	m.calls++
	return domain.EnrichReport{}, m.err
}

// mockChunker implements driven.Chunker.
type mockChunker struct {
	records []domain.ChunkRecord
	err     error
	calls   int
}

func (m *mockChunker) Name() string { return "mock" }

func (m *mockChunker) Chunk(_ context.Context, _ string, _ []domain.Element) ([]domain.ChunkRecord, error) {
	m.calls++
	return m.records, m.err
}

// mockArchive implements driven.Archive.
type mockArchive struct {
	names []string
	data  []byte
	err   error
}

func (m *mockArchive) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	m.names = append(m.names, name)
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.data = data
	return m.err
}

func (m *mockArchive) Close() error { return nil }

// --- Helpers ---

func newElementStore(t *testing.T) *jsonfile.Store {
	t.Helper()
	store, err := jsonfile.NewStore()
	require.NoError(t, err)
	return store
}

func newPromptStore(t *testing.T) driven.PromptStore {
	t.Helper()
	store, err := file.NewPromptStore(filepath.Join(t.TempDir(), "prompts"))
	require.NoError(t, err)
	return store
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// textToTag extracts the element text from a tagging prompt.
func textToTag(messages []driven.ChatMessage) string {
	user := messages[len(messages)-1].Content
	const marker = "Tag the following text:\n\n"
	if i := strings.LastIndex(user, marker); i >= 0 {
		return user[i+len(marker):]
	}
	return user
}

func hasImages(messages []driven.ChatMessage) bool {
	for _, m := range messages {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

// --- Fixtures ---

const samplePNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

// sampleElements is a one-page license agreement as a partitioner returns it.
func sampleElements() []domain.Element {
	page := func(typ domain.ElementType, id, text string) domain.Element {
		return domain.Element{
			Type:      typ,
			ElementID: id,
			Text:      text,
			Metadata: domain.ElementMetadata{
				PageNumber: 1,
				Filetype:   "application/pdf",
				Languages:  []string{"eng"},
			},
		}
	}

	title := page(domain.ElementTitle, "el-title", "LICENSE AGREEMENT")
	intro := page(domain.ElementNarrativeText, "el-intro",
		"This License Agreement is made between SAMPLE LICENSOR and the licensee.")
	fee := page(domain.ElementNarrativeText, "el-fee",
		"The licensee shall pay a fee of €42.000,00 within 90 days.")

	logo := page(domain.ElementImage, "el-logo", "")
	logo.Metadata.ImageBase64 = samplePNG
	logo.Metadata.ImageMimeType = "image/png"
	logo.Metadata.Coordinates = &domain.Coordinates{
		Points:       [][2]float64{{100, 100}, {100, 200}, {300, 200}, {300, 100}},
		System:       "PixelSpace",
		LayoutWidth:  1700,
		LayoutHeight: 2200,
	}

	table := page(domain.ElementTable, "el-table", "Fee 42.000")

	return []domain.Element{title, intro, fee, logo, table}
}

// contractReply answers tagging, description and extraction prompts the
// way a well-behaved model would for sampleElements.
func contractReply(messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if hasImages(messages) {
		return "An image of a logo", nil
	}

	user := messages[len(messages)-1].Content
	if strings.HasPrefix(user, "Based on the following context,") {
		switch {
		case strings.Contains(user, "core agreement type") && strings.Contains(user, "License Agreement"):
			return "License Agreement", nil
		case strings.Contains(user, "Return ONLY 'EUR'") && strings.Contains(user, "€"):
			return " EUR\n", nil
		default:
			return "Not found", nil
		}
	}

	text := textToTag(messages)
	return strings.Replace(text, "€42.000,00", "<PAYMENT>€42.000,00</PAYMENT>", 1), nil
}
