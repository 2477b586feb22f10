package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		Setup(Options{Level: tt.in, Format: "json"})
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("Level %q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestSetupWithFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger := Setup(Options{Level: "info", Format: "json", File: filepath.Join(t.TempDir(), "shems.log")})
	logger.Info().Msg("rotated output")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger := Component(base, "meter")
	logger.Info().Msg("tick")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "meter" {
		t.Errorf("Expected component meter, got %v", entry["component"])
	}
}
