//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		for _, k := range []string{"BOT_TOKEN", "PORT", "BOT_LANGUAGE", "MEDKIT_TIMEZONE"} {
			t.Setenv(k, "")
		}
		path := writeConfig(t, "bot:\n  token: abc\n")

		cfg, err := LoadConfig(path, true)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Storage.MedicinesFile != "medicines.csv" || cfg.Storage.GroupsFile != "groups.csv" {
			t.Errorf("unexpected storage defaults %+v", cfg.Storage)
		}
		if cfg.Scheduler.Timezone != "Europe/Moscow" || cfg.Scheduler.CheckTime != "09:00" {
			t.Errorf("unexpected scheduler defaults %+v", cfg.Scheduler)
		}
		if cfg.Health.Port != 8080 || cfg.Bot.Language != "ru" || cfg.Bot.Workers != 4 {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if cfg.Storage.LockTTL != 10*time.Second {
			t.Errorf("unexpected lock ttl %v", cfg.Storage.LockTTL)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected dev flag to be carried")
		}
	})

	t.Run("should let the environment override the file", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "from-env")
		t.Setenv("PORT", "9090")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("LOG_LEVEL", "debug")
		path := writeConfig(t, "bot:\n  token: from-file\nhealth:\n  port: 7000\n")

		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Bot.Token != "from-env" || cfg.Health.Port != 9090 {
			t.Errorf("env did not win: token=%q port=%d", cfg.Bot.Token, cfg.Health.Port)
		}
		if cfg.Redis.URL != "redis://localhost:6379/0" || cfg.Log.Level != "debug" {
			t.Errorf("env overrides missing: %+v %+v", cfg.Redis, cfg.Log)
		}
	})

	t.Run("should run from the environment when the file is missing", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "from-env")
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Bot.Token != "from-env" {
			t.Errorf("unexpected token %q", cfg.Bot.Token)
		}
	})

	t.Run("should require a token", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		path := writeConfig(t, "log:\n  level: info\n")
		if _, err := LoadConfig(path, false); err == nil || !strings.Contains(err.Error(), "bot.token") {
			t.Fatalf("expected token error, got %v", err)
		}
	})

	t.Run("should reject bad scheduler settings", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "x")
		for _, body := range []string{
			"scheduler:\n  timezone: Mars/Olympus\n",
			"scheduler:\n  check_time: '9 am'\n",
		} {
			if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
				t.Errorf("expected error for %q", body)
			}
		}
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		if _, err := Read(writeConfig(t, "bot: [unclosed")); err == nil {
			t.Fatal("expected a parse error")
		}
	})
}
