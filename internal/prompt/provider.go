package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tradepilot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Template is one strategy prompt template loaded from the template dir.
type Template struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// Provider resolves strategy prompt text from a template id plus an
// optional custom prompt. Templates live as .yaml files in one directory
// and can be hot reloaded via fsnotify.
type Provider struct {
	dir string

	mu        sync.RWMutex
	templates map[string]Template
	watcher   *fsnotify.Watcher
}

func NewProvider(dir string) (*Provider, error) {
	p := &Provider{dir: dir, templates: make(map[string]Template)}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Watch starts reloading templates when files under the dir change.
// Watcher errors are logged, never fatal.
func (p *Provider) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.dir); err != nil {
		w.Close()
		return err
	}
	p.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := p.reload(); err != nil {
					logger.Warnf("prompt: reload after %s failed: %v", ev.Name, err)
				} else {
					logger.Infof("prompt: templates reloaded after %s", filepath.Base(ev.Name))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warnf("prompt: watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (p *Provider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func (p *Provider) reload() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	loaded := make(map[string]Template)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.dir, name))
		if err != nil {
			return fmt.Errorf("reading template %s: %w", name, err)
		}
		var tpl Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		if tpl.ID == "" {
			tpl.ID = strings.TrimSuffix(name, ext)
		}
		loaded[tpl.ID] = tpl
	}
	p.mu.Lock()
	p.templates = loaded
	p.mu.Unlock()
	return nil
}

// Resolve builds the prompt text for a strategy. Template text and custom
// prompt are joined by a blank line; when neither is present a generated
// prompt referencing the symbols is returned.
func (p *Provider) Resolve(templateID, customPrompt string, symbols []string) string {
	var parts []string
	if templateID != "" {
		p.mu.RLock()
		tpl, ok := p.templates[templateID]
		p.mu.RUnlock()
		if ok && strings.TrimSpace(tpl.Text) != "" {
			parts = append(parts, strings.TrimSpace(tpl.Text))
		} else if !ok {
			logger.Warnf("prompt: template %q not found, skipping", templateID)
		}
	}
	if custom := strings.TrimSpace(customPrompt); custom != "" {
		parts = append(parts, custom)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}
	return fmt.Sprintf("Compose trading instructions for symbols: %s.", strings.Join(symbols, ", "))
}
