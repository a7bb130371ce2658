package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
)

// Catalog caches the synthesizer's voice list and tracks the default
// selection. The list is fetched once at startup and again whenever the
// backend signals that its voices changed; an empty list is valid and just
// yields no selection.
type Catalog struct {
	synth  repositories.Synthesizer
	logger *zap.Logger

	mu       sync.RWMutex
	voices   []entities.Voice
	selected string
	onUpdate func(voices []entities.Voice, selected string)
}

// NewCatalog creates a catalog and subscribes to the backend's voices-changed
// notification. Call Load to perform the initial fetch.
func NewCatalog(synth repositories.Synthesizer, logger *zap.Logger) *Catalog {
	c := &Catalog{
		synth:  synth,
		logger: logger,
	}
	synth.OnVoicesChanged(func() {
		if err := c.Load(context.Background()); err != nil {
			logger.Error("Failed to refresh voice catalog", zap.Error(err))
		}
	})
	return c
}

// OnUpdate registers a callback invoked after every successful load with the
// fresh voice list and the current selection.
func (c *Catalog) OnUpdate(fn func(voices []entities.Voice, selected string)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Load fetches the voice list from the synthesizer and replaces the cached
// catalog. The first voice becomes selected if nothing is selected yet.
func (c *Catalog) Load(ctx context.Context) error {
	voices, err := c.synth.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate voices: %w", err)
	}

	c.mu.Lock()
	c.voices = voices
	if c.selected == "" && len(voices) > 0 {
		c.selected = voices[0].ID
	}
	// Drop a selection that no longer exists.
	if c.selected != "" {
		if _, ok := c.lookup(c.selected); !ok {
			c.selected = ""
			if len(voices) > 0 {
				c.selected = voices[0].ID
			}
		}
	}
	notify := c.onUpdate
	selected := c.selected
	c.mu.Unlock()

	c.logger.Info("Voice catalog loaded",
		zap.Int("count", len(voices)),
		zap.String("selected", selected))

	if notify != nil {
		notify(voices, selected)
	}
	return nil
}

// Voices returns the cached voice list.
func (c *Catalog) Voices() []entities.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Selected returns the ID of the currently selected voice, or empty when the
// catalog is empty.
func (c *Catalog) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Select changes the selected voice. Unknown IDs are rejected.
func (c *Catalog) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(id); !ok {
		return fmt.Errorf("unknown voice %q", id)
	}
	c.selected = id
	return nil
}

// Resolve matches a voice ID against the catalog. A miss returns ok=false,
// which callers treat as "let the backend pick its default".
func (c *Catalog) Resolve(id string) (entities.Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(id)
}

// lookup requires c.mu to be held.
func (c *Catalog) lookup(id string) (entities.Voice, bool) {
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return entities.Voice{}, false
}
