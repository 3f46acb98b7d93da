package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func keepLogging(t *testing.T) {
	t.Helper()
	level, logger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	})
}

func TestSetLogLevel(t *testing.T) {
	keepLogging(t)
	for in, want := range map[string]zerolog.Level{
		"debug":     zerolog.DebugLevel,
		"  DeBuG  ": zerolog.DebugLevel,
		"":          zerolog.InfoLevel,
		"info":      zerolog.InfoLevel,
		"warning":   zerolog.WarnLevel,
		"WARN":      zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"fatal":     zerolog.FatalLevel,
		"panic":     zerolog.PanicLevel,
		"verbose":   zerolog.InfoLevel,
	} {
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Fatalf("SetLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigureLogger(t *testing.T) {
	t.Run("json lines", func(t *testing.T) {
		keepLogging(t)
		var buf bytes.Buffer
		ConfigureLogger("warn", false, &buf)

		log.Info().Msg("dropped")
		log.Warn().Int("status", 429).Msg("rate limited")

		var line map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("want exactly one JSON line, got %q: %v", buf.String(), err)
		}
		if line["message"] != "rate limited" || line["status"] != float64(429) || line["time"] == nil {
			t.Fatalf("unexpected line: %v", line)
		}
	})

	t.Run("console", func(t *testing.T) {
		keepLogging(t)
		var buf bytes.Buffer
		lg := ConfigureLogger("debug", true, &buf)
		lg.Debug().Msg("listening")

		out := strings.TrimSpace(buf.String())
		if !strings.Contains(out, "listening") || strings.HasPrefix(out, "{") {
			t.Fatalf("want console output, got %q", out)
		}
	})
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{" ", "\t"}, ""},
		{[]string{"", " :8080 ", ":9090"}, " :8080 "},
		{[]string{"8080", "9090"}, "8080"},
	}
	for _, tc := range cases {
		if got := FirstNonEmpty(tc.in...); got != tc.want {
			t.Fatalf("FirstNonEmpty(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
