package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	if got := With(context.Background(), "shift_id", "s1"); FromContext(got) != nil {
		t.Fatalf("With must not invent a logger")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger to round trip through the context")
	}
	if WithLogger(ctx, nil) != ctx {
		t.Fatalf("expected nil logger to leave the context unchanged")
	}

	ctx = With(ctx, "principal_id", "u1")
	FromContext(ctx).Info("signed up", "shift_id", "s1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["principal_id"] != "u1" || record["shift_id"] != "s1" {
		t.Fatalf("expected derived attributes on the record, got %v", record)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.DiscardHandler)
	scoped := slog.New(slog.DiscardHandler)

	if Resolve(context.Background(), nil) != slog.Default() {
		t.Fatalf("expected slog.Default without any logger")
	}
	if Resolve(context.Background(), fallback) != fallback {
		t.Fatalf("expected fallback when the context has no logger")
	}
	if Resolve(WithLogger(context.Background(), scoped), fallback) != scoped {
		t.Fatalf("expected the context logger to win")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json to the configured writer", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, closer, err := New(Options{Level: "warn", Output: &buf})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer closer.Close()

		logger.Info("hidden")
		logger.Warn("shown", "shift_id", "s1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected one record, got %q", buf.String())
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
			t.Fatalf("expected json output: %v", err)
		}
		if record["msg"] != "shown" || record["shift_id"] != "s1" {
			t.Fatalf("unexpected record %v", record)
		}
	})

	t.Run("text to a rotating file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "scheduler.log")
		logger, closer, err := New(Options{Level: "debug", Format: "text", FilePath: path, MaxSizeMB: 1})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Debug("written")
		if err := closer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		if !strings.Contains(string(data), "msg=written") {
			t.Fatalf("expected text record in file, got %q", data)
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		t.Parallel()
		if _, _, err := New(Options{Level: "loud"}); err == nil {
			t.Fatalf("expected error for unknown level")
		}
		if _, _, err := New(Options{Format: "xml"}); err == nil {
			t.Fatalf("expected error for unknown format")
		}
	})
}
