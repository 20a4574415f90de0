package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("tasksphere", flag.ContinueOnError)
	return Load(fs, args)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.API.Latency.Std() != 300*time.Millisecond || cfg.API.LogoutLatency.Std() != 200*time.Millisecond {
		t.Fatalf("latencies = %v %v", cfg.API.Latency.Std(), cfg.API.LogoutLatency.Std())
	}
	if cfg.Directory.CacheTTL.Std() != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Directory.CacheTTL.Std())
	}
	if cfg.File != "" {
		t.Fatalf("unexpected config file %q", cfg.File)
	}
	if cfg.Server.Admin {
		t.Fatal("admin routes must be off by default")
	}
}

func TestLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasksphere.toml")
	file := `
[server]
addr = ":9000"
allowed_origins = ["http://localhost:5173"]

[storage]
driver = "memory"

[api]
latency = "50ms"
task_scope = "created_or_assigned"

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKSPHERE_ADDR", ":9100")
	t.Setenv("TASKSPHERE_LOGOUT_LATENCY", "1s")
	t.Setenv("TASKSPHERE_SEED", "false")

	cfg, err := load(t, "-config", path, "-latency", "0s")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.File != path {
		t.Fatalf("file = %q", cfg.File)
	}
	if cfg.Server.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %q", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.API.Latency.Std() != 0 {
		t.Fatalf("flag should override file latency, got %v", cfg.API.Latency.Std())
	}
	if cfg.API.LogoutLatency.Std() != time.Second {
		t.Fatalf("logout latency = %v", cfg.API.LogoutLatency.Std())
	}
	if cfg.API.Seed {
		t.Fatal("seed should be disabled by env")
	}
	if cfg.API.TaskScope != "created_or_assigned" || cfg.Log.Format != "json" {
		t.Fatalf("api/log = %+v %+v", cfg.API, cfg.Log)
	}
}

func TestAdminSwitch(t *testing.T) {
	t.Setenv("TASKSPHERE_ADMIN", "true")
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Server.Admin {
		t.Fatal("env should enable admin routes")
	}

	cfg, err = load(t, "-admin=false")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Admin {
		t.Fatal("flag should override env")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{name: "driver", args: []string{"-storage", "postgres"}, want: "storage.driver"},
		{name: "scope", env: map[string]string{"TASKSPHERE_TASK_SCOPE": "everything"}, want: "api.task_scope"},
		{name: "level", args: []string{"-log-level", "loud"}, want: "log.level"},
		{name: "duration", env: map[string]string{"TASKSPHERE_LATENCY": "soon"}, want: "TASKSPHERE_LATENCY"},
		{name: "quota", env: map[string]string{"TASKSPHERE_STORAGE_QUOTA": "lots"}, want: "TASKSPHERE_STORAGE_QUOTA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("log output = %q", out)
	}
}
