package usecase

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/wicara/adapters/synth"
	"github.com/satriahrh/wicara/domain/entities"
)

func TestCatalog_LoadSelectsFirstVoice(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := synth.NewMockSynthesizer(logger, false)
	catalog := NewCatalog(mock, logger)

	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	voices := catalog.Voices()
	if len(voices) == 0 {
		t.Fatal("Expected voices after load")
	}
	if catalog.Selected() != voices[0].ID {
		t.Errorf("Expected first voice %q selected, got %q", voices[0].ID, catalog.Selected())
	}
}

func TestCatalog_EmptyThenVoicesChanged(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := synth.NewMockSynthesizer(logger, false)
	mock.SetVoices(nil)

	catalog := NewCatalog(mock, logger)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// An empty catalog is valid: no voices, no selection.
	if len(catalog.Voices()) != 0 {
		t.Errorf("Expected empty catalog, got %v", catalog.Voices())
	}
	if catalog.Selected() != "" {
		t.Errorf("Expected no selection, got %q", catalog.Selected())
	}

	var mu sync.Mutex
	var updates int
	catalog.OnUpdate(func(voices []entities.Voice, selected string) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	// The platform's voices-changed notification triggers a re-fetch.
	mock.SetVoices([]entities.Voice{
		{ID: "v1", Name: "One", Language: "en"},
		{ID: "v2", Name: "Two", Language: "id"},
		{ID: "v3", Name: "Three", Language: "ja"},
	})

	voices := catalog.Voices()
	if len(voices) != 3 {
		t.Fatalf("Expected 3 voices, got %d", len(voices))
	}
	if catalog.Selected() != "v1" {
		t.Errorf("Expected first voice selected, got %q", catalog.Selected())
	}

	mu.Lock()
	defer mu.Unlock()
	if updates != 1 {
		t.Errorf("Expected 1 update notification, got %d", updates)
	}
}

func TestCatalog_SelectAndResolve(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := synth.NewMockSynthesizer(logger, false)
	catalog := NewCatalog(mock, logger)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := catalog.Select("mock-en"); err != nil {
		t.Errorf("Select failed for known voice: %v", err)
	}
	if catalog.Selected() != "mock-en" {
		t.Errorf("Expected 'mock-en' selected, got %q", catalog.Selected())
	}

	if err := catalog.Select("ghost"); err == nil {
		t.Error("Expected error selecting unknown voice")
	}

	if _, ok := catalog.Resolve("mock-id"); !ok {
		t.Error("Expected to resolve known voice")
	}
	if _, ok := catalog.Resolve("ghost"); ok {
		t.Error("Expected miss for unknown voice")
	}
}

func TestCatalog_ReplacesStaleSelection(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := synth.NewMockSynthesizer(logger, false)
	catalog := NewCatalog(mock, logger)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	previous := catalog.Selected()
	mock.SetVoices([]entities.Voice{{ID: "fresh", Name: "Fresh", Language: "en"}})

	if catalog.Selected() == previous {
		t.Errorf("Expected selection to move off removed voice %q", previous)
	}
	if catalog.Selected() != "fresh" {
		t.Errorf("Expected 'fresh' selected, got %q", catalog.Selected())
	}
}
