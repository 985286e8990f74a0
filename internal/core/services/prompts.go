package services

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// promptRenderer executes named prompt templates, preferring a PromptStore
// and falling back to the built-in defaults.
type promptRenderer struct {
	mu    sync.RWMutex
	store driven.PromptStore
}

// SetPromptStore implements driven.PromptStoreAware.
func (r *promptRenderer) SetPromptStore(store driven.PromptStore) {
	r.mu.Lock()
	r.store = store
	r.mu.Unlock()
}

func (r *promptRenderer) source(name string) string {
	r.mu.RLock()
	store := r.store
	r.mu.RUnlock()
	if store != nil {
		if text, err := store.Load(name); err == nil && text != "" {
			return text
		} else if err != nil {
			logger.Warn("load prompt %s: %v, using default", name, err)
		}
	}
	return driven.DefaultPrompts()[name]
}

func (r *promptRenderer) render(name string, data any) (string, error) {
	src := r.source(name)
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		if def := driven.DefaultPrompts()[name]; def != src {
			logger.Warn("parse prompt %s: %v, using default", name, err)
			tmpl, err = template.New(name).Parse(def)
		}
		if err != nil {
			return "", fmt.Errorf("parse prompt %s: %w", name, err)
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
