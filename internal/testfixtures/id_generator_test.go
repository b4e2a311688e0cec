package testfixtures

import (
	"reflect"
	"sync"
	"testing"
)

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("shift")
	if gen.Last() != "" {
		t.Fatalf("expected no identifier before the first call")
	}

	next := gen.NextFunc()
	next()
	next()

	if want := []string{"shift-1", "shift-2"}; !reflect.DeepEqual(gen.Issued(), want) {
		t.Fatalf("Issued() = %v, want %v", gen.Issued(), want)
	}
	if gen.Last() != "shift-2" {
		t.Fatalf("Last() = %q", gen.Last())
	}

	gen.Reset("rule")
	if got := gen.Next(); got != "rule-1" {
		t.Fatalf("expected numbering to restart under the new prefix, got %q", got)
	}
	if len(gen.Issued()) != 1 {
		t.Fatalf("expected reset to clear history, got %v", gen.Issued())
	}
}

func TestIDGeneratorDefaultsAndNil(t *testing.T) {
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("expected empty id from nil generator, got %q", got)
	}
}

func TestIDGeneratorIsUniqueUnderConcurrency(t *testing.T) {
	gen := NewIDGenerator("s")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				gen.Next()
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range gen.Issued() {
		if seen[id] {
			t.Fatalf("duplicate identifier %q", id)
		}
		seen[id] = true
	}
	if len(seen) != 200 {
		t.Fatalf("expected 200 identifiers, got %d", len(seen))
	}
}
