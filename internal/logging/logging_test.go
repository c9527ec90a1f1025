package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestNewWritesServiceField(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	var buf bytes.Buffer
	log := New("info", &buf)
	log.Info().Int("features", 3).Msg("loaded")
	log.Debug().Msg("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["service"] != "zipheat" || entry["message"] != "loaded" || entry["features"] != 3.0 {
		t.Fatalf("entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatal("missing timestamp")
	}
}

func TestNewFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	log, closeFn, err := NewFile("info", "")
	if err != nil || closeFn() != nil {
		t.Fatal(err)
	}
	log.Info().Msg("discarded")

	p := filepath.Join(t.TempDir(), "zipheat.log")
	log, closeFn, err = NewFile("info", p)
	if err != nil {
		t.Fatal(err)
	}
	log.Warn().Msg("to file")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(p)
	if err != nil || !strings.Contains(string(data), "to file") {
		t.Fatalf("file contents %q err %v", data, err)
	}
}
