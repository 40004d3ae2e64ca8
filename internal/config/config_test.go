package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLOWSTORE_DIR", "")
	t.Setenv("FLOWSTORE_LOG_LEVEL", "")
	t.Setenv("FLOWSTORE_LOG_PATH", "")
	t.Setenv("FLOWSTORE_LOG_MAX_SIZE_MB", "")
	t.Setenv("FLOWSTORE_LOG_MAX_BACKUPS", "")
	t.Setenv("FLOWSTORE_LOG_MAX_AGE_DAYS", "")
	t.Setenv("FLOWSTORE_LOG_COMPRESS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.StoreDir != DefaultStoreDir {
		t.Fatalf("expected default store dir %q, got %q", DefaultStoreDir, cfg.StoreDir)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("expected default log max size %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != DefaultLogMaxBackups {
		t.Fatalf("expected default log max backups %d, got %d", DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultLogMaxAgeDays {
		t.Fatalf("expected default log max age %d, got %d", DefaultLogMaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FLOWSTORE_DIR", "/var/run/flowstore")
	t.Setenv("FLOWSTORE_LOG_LEVEL", "debug")
	t.Setenv("FLOWSTORE_LOG_PATH", "/var/log/flowstore.log")
	t.Setenv("FLOWSTORE_LOG_MAX_SIZE_MB", "512")
	t.Setenv("FLOWSTORE_LOG_MAX_BACKUPS", "4")
	t.Setenv("FLOWSTORE_LOG_MAX_AGE_DAYS", "2")
	t.Setenv("FLOWSTORE_LOG_COMPRESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.StoreDir != "/var/run/flowstore" {
		t.Fatalf("unexpected store dir %q", cfg.StoreDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Path != "/var/log/flowstore.log" {
		t.Fatalf("unexpected log path %q", cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != 512 {
		t.Fatalf("expected log max size 512, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 4 {
		t.Fatalf("expected log max backups 4, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != 2 {
		t.Fatalf("expected log max age 2, got %d", cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	t.Setenv("FLOWSTORE_LOG_MAX_SIZE_MB", "-1")
	t.Setenv("FLOWSTORE_LOG_MAX_BACKUPS", "-2")
	t.Setenv("FLOWSTORE_LOG_MAX_AGE_DAYS", "-3")
	t.Setenv("FLOWSTORE_LOG_COMPRESS", "notabool")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"FLOWSTORE_LOG_MAX_SIZE_MB",
		"FLOWSTORE_LOG_MAX_BACKUPS",
		"FLOWSTORE_LOG_MAX_AGE_DAYS",
		"FLOWSTORE_LOG_COMPRESS",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}
