package logtail

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestParse_SlogTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Warn("guest sync failed", "lists", 2, "error", "api POST /list/import returned status 500")

	e, ok := Parse(strings.TrimSpace(buf.String()))
	if !ok {
		t.Fatalf("Parse() could not decode %q", buf.String())
	}
	if e.Level != slog.LevelWarn {
		t.Fatalf("Level = %v, want WARN", e.Level)
	}
	if e.Message != "guest sync failed" {
		t.Fatalf("Message = %q", e.Message)
	}
	if e.Time.IsZero() {
		t.Fatalf("Time should be parsed")
	}
	want := []Attr{{"lists", "2"}, {"error", "api POST /list/import returned status 500"}}
	if !reflect.DeepEqual(e.Attrs, want) {
		t.Fatalf("Attrs = %#v, want %#v", e.Attrs, want)
	}
}

func TestParse_RejectsPlainText(t *testing.T) {
	if _, ok := Parse("panic: something broke"); ok {
		t.Fatalf("plain text should not parse")
	}
	if _, ok := Parse(`msg="no level here"`); ok {
		t.Fatalf("line without level should not parse")
	}
}

func TestFilter(t *testing.T) {
	lines := []string{
		`time=2026-01-02T10:00:00.000Z level=DEBUG msg="item cache hit" list=7`,
		`time=2026-01-02T10:00:01.000Z level=INFO msg="basket started" mode=mock`,
		`time=2026-01-02T10:00:02.000Z level=ERROR msg="write guest lists failed" error="disk full"`,
		`goroutine 1 [running]:`,
	}

	got := Filter(lines, slog.LevelInfo)
	if len(got) != 2 {
		t.Fatalf("Filter(info) returned %d entries, want 2", len(got))
	}
	if got[1].Message != "write guest lists failed" || got[1].Attrs[0].Value != "disk full" {
		t.Fatalf("unexpected entry %#v", got[1])
	}

	if got := Filter(lines, slog.LevelDebug); len(got) != 4 {
		t.Fatalf("Filter(debug) returned %d entries, want 4", len(got))
	}
}
