package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/store/memory"
)

func ctx() context.Context { return context.Background() }

func newCatalog() *catalog.Catalog {
	s := memory.New()
	return catalog.NewCatalog(s, nil)
}

func TestCatalogRegisterAndGet(t *testing.T) {
	c := newCatalog()

	_, err := c.RegisterType(ctx(), catalog.Definition{
		Name:        "export.completed",
		Description: "A survey export finished",
		Group:       "export",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.GetType(ctx(), "export.completed")
	if err != nil {
		t.Fatal(err)
	}
	if got.Definition.Name != "export.completed" {
		t.Fatalf("got %q", got.Definition.Name)
	}
}

func TestCatalogRegisterRequiresName(t *testing.T) {
	c := newCatalog()

	if _, err := c.RegisterType(ctx(), catalog.Definition{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCatalogRejectsExampleViolatingSchema(t *testing.T) {
	c := newCatalog()

	_, err := c.RegisterType(ctx(), catalog.Definition{
		Name:    "export.completed",
		Schema:  json.RawMessage(`{"type":"object","required":["url"]}`),
		Example: json.RawMessage(`{"size": 12}`),
	})
	if err == nil {
		t.Fatal("expected schema violation error")
	}
}

func TestCatalogCacheHit(t *testing.T) {
	c := newCatalog()

	if _, err := c.RegisterType(ctx(), catalog.Definition{Name: "a.event"}); err != nil {
		t.Fatal(err)
	}

	// First call populates cache.
	got1, _ := c.GetType(ctx(), "a.event")
	// Second call should return same pointer (cache hit).
	got2, _ := c.GetType(ctx(), "a.event")

	if got1 != got2 {
		t.Fatal("expected cache hit (same pointer)")
	}
}

func TestCatalogGetUnknownType(t *testing.T) {
	c := newCatalog()

	_, err := c.GetType(ctx(), "no.such.event")
	if !errors.Is(err, hookline.ErrEventTypeNotFound) {
		t.Fatalf("expected ErrEventTypeNotFound, got %v", err)
	}
	if c.Known(ctx(), "no.such.event") {
		t.Fatal("Known() should be false for unregistered type")
	}
}

func TestCatalogRegisterBuiltins(t *testing.T) {
	c := newCatalog()

	if err := c.RegisterBuiltins(ctx()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []event.Type{
		event.ResponseSubmitted,
		event.ResponseUpdated,
		event.ResponseDeleted,
		event.SurveyPublished,
		event.SurveyUnpublished,
		event.SurveyClosed,
	} {
		et, err := c.GetType(ctx(), name)
		if err != nil {
			t.Fatalf("builtin %q not registered: %v", name, err)
		}
		if !et.Builtin {
			t.Fatalf("builtin %q not flagged as builtin", name)
		}
	}

	// Idempotent re-registration.
	if err := c.RegisterBuiltins(ctx()); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogDeleteBuiltinRejected(t *testing.T) {
	c := newCatalog()

	if err := c.RegisterBuiltins(ctx()); err != nil {
		t.Fatal(err)
	}

	err := c.DeleteType(ctx(), event.ResponseSubmitted)
	if !errors.Is(err, catalog.ErrBuiltinType) {
		t.Fatalf("expected ErrBuiltinType, got %v", err)
	}
}

func TestCatalogDeleteHostType(t *testing.T) {
	c := newCatalog()

	if _, err := c.RegisterType(ctx(), catalog.Definition{Name: "export.completed"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteType(ctx(), "export.completed"); err != nil {
		t.Fatal(err)
	}

	_, err := c.GetType(ctx(), "export.completed")
	if !errors.Is(err, hookline.ErrEventTypeNotFound) {
		t.Fatalf("expected ErrEventTypeNotFound after delete, got %v", err)
	}
}

func TestBuiltinExamplesMatchSchemas(t *testing.T) {
	v := catalog.NewValidator()

	for _, def := range catalog.BuiltinDefinitions() {
		if err := v.ValidateExample(def.Schema, def.Example); err != nil {
			t.Errorf("builtin %q: example does not match schema: %v", def.Name, err)
		}
	}
}
