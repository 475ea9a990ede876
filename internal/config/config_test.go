package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Producers) == 0 {
		t.Error("expected default producers")
	}
	gemini, ok := cfg.Producers["gemini"]
	if !ok {
		t.Fatal("expected gemini producer")
	}
	if gemini.APIKey != "${GEMINI_API_KEY}" {
		t.Error("expected gemini API key placeholder")
	}
	if !gemini.Enabled {
		t.Error("expected gemini enabled by default")
	}
	if cfg.Defaults.Producer != "gemini" {
		t.Errorf("default producer = %q", cfg.Defaults.Producer)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ResolvedProducer(t *testing.T) {
	os.Setenv("TEST_GEMINI_KEY", "AIza-from-env")
	defer os.Unsetenv("TEST_GEMINI_KEY")

	cfg := &Config{
		Producers: map[string]ProducerCfg{
			"gemini":  {Type: "gemini", APIKey: "${TEST_GEMINI_KEY}"},
			"literal": {Type: "openai", APIKey: "direct-key"},
		},
	}

	t.Run("resolves env var reference", func(t *testing.T) {
		p, ok := cfg.ResolvedProducer("gemini")
		if !ok {
			t.Fatal("gemini not found")
		}
		if p.APIKey != "AIza-from-env" {
			t.Errorf("expected AIza-from-env, got %s", p.APIKey)
		}
	})

	t.Run("returns literal value", func(t *testing.T) {
		p, ok := cfg.ResolvedProducer("literal")
		if !ok {
			t.Fatal("literal not found")
		}
		if p.APIKey != "direct-key" {
			t.Errorf("expected direct-key, got %s", p.APIKey)
		}
	})

	t.Run("unknown producer", func(t *testing.T) {
		if _, ok := cfg.ResolvedProducer("absent"); ok {
			t.Error("expected ok=false for unknown producer")
		}
	})
}

func TestEnabledProducers(t *testing.T) {
	cfg := &Config{
		Producers: map[string]ProducerCfg{
			"on":  {Type: "gemini", Enabled: true},
			"off": {Type: "openai", Enabled: false},
		},
	}
	enabled := cfg.EnabledProducers()
	if len(enabled) != 1 {
		t.Fatalf("enabled = %d, want 1", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("expected 'on' in enabled set")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
producers:
  custom:
    type: gemini
    model: test-model
    enabled: true
defaults:
  producer: custom
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		p, ok := cfg.Producers["custom"]
		if !ok {
			t.Fatal("custom producer not loaded")
		}
		if p.Model != "test-model" {
			t.Errorf("model = %q", p.Model)
		}
		if cfg.Defaults.Producer != "custom" {
			t.Errorf("default producer = %q", cfg.Defaults.Producer)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("defaults:\n  producer: gemini\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("defaults:\n  producer: gemini\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Defaults.Producer
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("defaults:\n  producer: initial\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Defaults.Producer != "initial" {
		t.Errorf("initial value mismatch: got %s", cfg.Defaults.Producer)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Defaults.Producer)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("defaults:\n  producer: updated\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	newCfg := mgr.Get()
	if newCfg.Defaults.Producer != "updated" {
		t.Errorf("config not updated: got %s", newCfg.Defaults.Producer)
	}

	if v := lastValue.Load(); v != "updated" {
		t.Errorf("callback received wrong value: got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	cfg := mgr.Get()
	if _, ok := cfg.Producers["gemini"]; !ok {
		t.Error("written default config missing gemini producer")
	}
}
