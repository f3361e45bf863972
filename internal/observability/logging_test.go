package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func restoreLogging(t *testing.T) {
	t.Helper()
	prevLevel := zerolog.GlobalLevel()
	prevLog := log.Logger
	prevCtx := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLog
		zerolog.DefaultContextLogger = prevCtx
	})
}

func TestSetupLogging_JSON(t *testing.T) {
	restoreLogging(t)

	var buf bytes.Buffer
	l := SetupLogging(&buf, "warn", false)

	l.Info().Msg("dropped")
	log.Warn().Str("venue", "v1").Msg("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Fatalf("info should be filtered at warn: %s", buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("json: %v (%s)", err, buf.String())
	}
	if m["venue"] != "v1" || m["message"] != "kept" || m["time"] == nil {
		t.Fatalf("unexpected line: %v", m)
	}
}

func TestSetupLogging_ContextFallbackAndPretty(t *testing.T) {
	restoreLogging(t)

	var buf bytes.Buffer
	SetupLogging(&buf, "debug", true)

	// No logger attached to ctx: falls back to the global one.
	zerolog.Ctx(context.Background()).Debug().Msg("from ctx")

	out := buf.String()
	if !strings.Contains(out, "from ctx") {
		t.Fatalf("missing line: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("pretty output should not be JSON: %q", out)
	}
}
