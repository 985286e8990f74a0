package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arah-ai/arah/internal/adapters/driven/fswatch"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the file extension of prompt templates on disk.
const promptExt = ".tmpl"

// PromptStore loads prompt templates from user-editable files with fallback
// to the built-in defaults.
//
// The store initialises lazily: the directory and default files are only
// written on the first Load, never in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	defaults  map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a file-based prompt store.
// If promptDir is empty, defaults to ~/.arah/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}
	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
		defaults:  driven.DefaultPrompts(),
	}, nil
}

// Load returns the template for name: the cached copy, else the file on
// disk, else the built-in default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		if err == nil {
			err = fmt.Errorf("empty file")
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Keep a concurrent load's value if it won the race.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
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

// Watch reloads the cache whenever a template file changes, until ctx is
// done. The returned channel closes once watching has stopped.
func (s *PromptStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return nil, s.initErr
	}
	return fswatch.Watch(ctx, s.promptDir, fswatch.Options{
		Match: func(p string) bool { return strings.HasSuffix(p, promptExt) },
	}, func(paths []string) {
		logger.Info("prompt templates changed (%d files), reloading", len(paths))
		s.Reload()
	})
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and seeds missing default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range s.defaults {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := "# Arah Prompts\n\n" +
		"Templates used by the answer pipeline. Edit a file to change how the\n" +
		"assistant writes; running servers pick up changes automatically.\n\n" +
		"## Files\n\n" +
		"- `answer.tmpl` - grounded answer. Fields: `{{.Query}}`, `{{.Context}}`\n" +
		"- `citation.tmpl` - adds `[source: ...]` markers. Fields: `{{.Answer}}`\n" +
		"- `table_enrichment.tmpl` - sections around a markdown table. Fields: `{{.Answer}}`\n" +
		"- `polish.tmpl` - rewrites structured answers. Fields: `{{.Style}}`, `{{.StyleInstruction}}`,\n" +
		"  `{{.DocType}}`, `{{.Query}}`, `{{.Facts}}`, `{{.Draft}}`\n\n" +
		"Templates use Go text/template syntax. A template that fails to parse\n" +
		"or render falls back to the built-in default. Delete a file to restore it.\n"
	return os.WriteFile(path, []byte(content), 0600)
}
