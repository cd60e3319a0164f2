package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptTagSystem: `You are a precise text tagger that only tags existing text without adding any new information.`,

	driven.PromptTagText: `You are a precise text tagging agent. Your task is to add XML-style tags around EXISTING text elements in the document.

Rules:
1. ONLY tag text that actually exists in the input - NEVER generate new text or content - this is strictly forbidden
2. DO NOT modify, rephrase or expand the original text
3. DO NOT make assumptions or add information not present in the text
4. Tag ALL relevant information that matches the tag definitions
5. Preserve the exact original text structure and formatting
6. For date ranges (e.g. "01/07/2020-05/01/2023"), tag the entire range as a single <DATE> element
7. Your output must contain ONLY the input text with added XML tags

Tags to use (only for EXACT matches in the original text):
<COMPANY> - Company names (e.g., "SAMPLE LICENSOR")
<PARTY> - Party designations (e.g., "licensor", "licensee")
<DATE> - Dates in any format, including date ranges (e.g., "01/07/2020-05/01/2023")
<ADDRESS> - Full physical addresses
<CONTACT> - Names, phones, emails
<RIGHTS> - Rights and permissions granted
<TERRITORY> - Geographic regions
<TERM> - Time periods and durations
<PAYMENT> - Money amounts and payment terms
<LEGAL> - Legal clauses and conditions
<PRODUCT> - Products or services
<ID> - Reference numbers (e.g., "GB 111111111")
<STATUS> - Contract status indicators

Example input:
"The license period is from 01/07/2020-05/01/2023 for the territory."

Example output:
"The license period is from <DATE>01/07/2020-05/01/2023</DATE> for the territory."

Tag the following text:

%s`,

	driven.PromptDescribeImage: `You are an image summarizing agent. I will be giving you an image and you will provide a summary describing the image, starting with "An image", or "An illustration", or "A diagram:", or "A logo:" or "A symbol:". If it contains a part, you will try to identify the part and if it shows an action you will call those out. If it is a symbol, just give the symbol a meaningful name such as "warning symbol" or "attention!"`,

	driven.PromptDescribeTable: `You are a table analyzing agent. Please analyze the table and give me a series of paragraphs for each data row.
Describe in brief the content of each field and clearly call out the values from the table for that field. Include all the details for each field; do not miss any crucial information.
Each paragraph ends in a blank line before moving to the next item. Work out whether the table reads left to right (columns are fields) or top to bottom (rows are fields).
For each field, tag the metadata you can identify: <definition>, <intent>, <units>, <data_type>, <constraints>, <examples>, <format>, <validation_rules>, <is_required>, <business_context>. Omit tags that do not apply.
Keep the output compact. If you see a value in the table that fits none of these, include it anyway.
Only provide the text paragraphs, with no JSON and nothing before or after them.`,

	driven.PromptExtractSystem: `You are a precise data extractor. Extract EXACTLY what is asked for:
- For currency, if you see € or 'euro', return 'EUR'
- For payments, include the FULL amount with currency symbols and rates (e.g., €3.000,00/H)
- If multiple values exist, return ALL relevant values
- Do not make assumptions or add explanatory text
- If the specific value is not found, return ONLY 'Not found'`,

	driven.PromptExtractAnswer: `Based on the following context, %s

Context:
%s

Answer:`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.clause/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".clause", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Clause Prompts

This directory contains the prompts sent to the language model.

## Files

- ` + "`tag_system.txt`" + ` - System message for narrative text tagging
- ` + "`tag_text.txt`" + ` - Tagging instructions; the text replaces ` + "`%s`" + `
- ` + "`describe_image.txt`" + ` - Image description request
- ` + "`describe_table.txt`" + ` - Table description request
- ` + "`extract_system.txt`" + ` - System message for variable extraction
- ` + "`extract_answer.txt`" + ` - Question (first ` + "`%s`" + `) and retrieved context (second ` + "`%s`" + `)

## Customisation

Edit any file to change model behaviour. The server reloads prompts on
SIGHUP; other commands read them at start-up.

Keep the ` + "`%s`" + ` placeholders in place and in order.
`
	return os.WriteFile(path, []byte(content), 0600)
}
