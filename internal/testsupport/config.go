package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"crosspost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Discord.Token = "test-token"
	cfg.Discord.GuildID = 100
	cfg.Discord.SubmitChannelID = 200
	cfg.Discord.LogChannelID = 300
	cfg.Discord.QueueChannelID = 400
	cfg.Publisher.BaseURL = "http://127.0.0.1:0"
	cfg.Publisher.Username = "test"
	cfg.Publisher.Password = "test"
	cfg.Publisher.SessionFile = filepath.Join(base, "session.json")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCaption overrides the default publish caption on the test config.
func WithCaption(caption string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Publisher.Caption = caption
	}
}

// WithMaxAttachments overrides the submission attachment cap.
func WithMaxAttachments(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Media.MaxAttachments = limit
	}
}

// StubFFmpeg writes a stub ffmpeg executable into the config temp area and
// points the media settings at it, so daemon construction succeeds on hosts
// without a real ffmpeg install.
func StubFFmpeg(t testing.TB) ConfigOption {
	return func(cfg *config.Config) {
		binDir := filepath.Join(filepath.Dir(cfg.Paths.DataDir), "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub ffmpeg: %v", err)
		}
		cfg.Media.FFmpegBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
