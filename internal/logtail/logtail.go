package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Attr is one key=value pair of a log record.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []Attr
	Raw     string
}

// Parse decodes a line written by slog.TextHandler. Lines without a level
// are reported as not ok.
func Parse(line string) (Entry, bool) {
	e := Entry{Raw: line}
	hasLevel := false
	rest := strings.TrimSpace(line)
	for rest != "" {
		key, value, tail, ok := nextPair(rest)
		if !ok {
			return e, false
		}
		rest = tail
		switch key {
		case slog.TimeKey:
			if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
				e.Time = ts
			}
		case slog.LevelKey:
			if err := e.Level.UnmarshalText([]byte(value)); err != nil {
				return e, false
			}
			hasLevel = true
		case slog.MessageKey:
			e.Message = value
		default:
			e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
		}
	}
	return e, hasLevel
}

// Filter keeps lines whose level is at least min. Lines that do not parse
// are kept only when min is at or below debug.
func Filter(lines []string, min slog.Level) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, ok := Parse(line)
		if !ok {
			if min <= slog.LevelDebug && strings.TrimSpace(line) != "" {
				out = append(out, Entry{Level: slog.LevelDebug, Message: line, Raw: line})
			}
			continue
		}
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}

// nextPair splits the leading key=value off s.
func nextPair(s string) (key, value, rest string, ok bool) {
	eq := strings.IndexByte(s, '=')
	if eq <= 0 || strings.ContainsAny(s[:eq], " \t") {
		return "", "", "", false
	}
	key = s[:eq]
	s = s[eq+1:]
	if strings.HasPrefix(s, `"`) {
		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return "", "", "", false
		}
		value, err = strconv.Unquote(quoted)
		if err != nil {
			return "", "", "", false
		}
		return key, value, strings.TrimLeft(s[len(quoted):], " "), true
	}
	if sp := strings.IndexByte(s, ' '); sp >= 0 {
		return key, s[:sp], strings.TrimLeft(s[sp:], " "), true
	}
	return key, s, "", true
}
