package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	l, err := Build(Options{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("game_move", zap.String("room_id", "r-1"))
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"game_move"`) || !strings.Contains(string(raw), `"room_id":"r-1"`) {
		t.Fatalf("unexpected log line: %s", raw)
	}
}

func TestSetAndNop(t *testing.T) {
	defer Set(nil)
	l, err := Build(Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	Set(l)
	if L() != l {
		t.Fatalf("Set did not install logger")
	}
	Set(nil)
	if L() == nil {
		t.Fatalf("L() returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARN") != zapcore.WarnLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("parseLevel mismatch")
	}
}
