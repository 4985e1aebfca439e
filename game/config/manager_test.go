package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/lane-runner/game/engine"
)

func createValidConfig() *engine.GameConfig {
	config := engine.DefaultConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	return config
}

func writeConfigFile(t *testing.T, dir, filename string, config *engine.GameConfig) {
	t.Helper()

	var data []byte
	var err error
	if filepath.Ext(filename) == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRaw(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic becomes the default", func(t *testing.T) {
		dir := t.TempDir()
		other := createValidConfig()
		other.Name = "Alpha"
		writeConfigFile(t, dir, "alpha.yaml", other)
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic.yaml", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected classic default, got %q", got)
		}
	})

	t.Run("first valid file without classic", func(t *testing.T) {
		dir := t.TempDir()
		writeRaw(t, dir, "aaa.yaml", "tile_size: 0\n")
		beta := createValidConfig()
		beta.Name = "Beta"
		writeConfigFile(t, dir, "beta.json", beta)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Beta" {
			t.Errorf("Expected beta default, got %q", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got: %v", err)
		}
		defaultConfig := manager.GetDefault()
		if defaultConfig == nil || defaultConfig.Name != engine.DefaultConfig().Name {
			t.Errorf("Expected built-in default, got %+v", defaultConfig)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "valid.yaml", createValidConfig())
	writeRaw(t, dir, "partial.yml", "step_duration: 0.3\n")
	writeRaw(t, dir, "json_one.json", `{"name":"From JSON","min_lane":-4,"max_lane":4,"cars_per_lane":2,"trucks_per_lane":1}`)
	writeRaw(t, dir, "invalid.yaml", "min_lane: 3\nmax_lane: 9\n")
	writeRaw(t, dir, "malformed.json", "{not json")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name     string
		load     string
		wantName string
		wantErr  error
	}{
		{"yaml", "valid", "Test Config", nil},
		{"with extension", "valid.yaml", "Test Config", nil},
		{"yml named after file", "partial", "partial", nil},
		{"json", "json_one", "From JSON", nil},
		{"missing", "nope", "", ErrConfigNotFound},
		{"fails validation", "invalid", "", ErrInvalidConfig},
		{"malformed", "malformed", "", ErrInvalidConfig},
		{"path traversal", "../etc/passwd", "", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := manager.LoadConfig(tt.load)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig(%q): %v", tt.load, err)
			}
			if config.Name != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, config.Name)
			}
		})
	}

	partial, _ := manager.LoadConfig("partial")
	if partial.StepDuration != 0.3 || partial.LaneCount() != 17 {
		t.Errorf("Expected partial file layered on defaults, got step=%v lanes=%d", partial.StepDuration, partial.LaneCount())
	}
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "one.yaml", createValidConfig())
	writeRaw(t, dir, "two.json", `{"name":"Two","seed":9}`)
	writeRaw(t, dir, "broken.yaml", "tile_size: -1\n")
	writeRaw(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0755); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 valid configs, got %d", len(configs))
	}

	byID := map[string]bool{}
	for _, c := range configs {
		byID[c.ConfigID] = true
		if c.ConfigID == "two" && (!c.Seeded || c.Lanes != 17) {
			t.Errorf("Unexpected info for two: %+v", c)
		}
	}
	if !byID["one"] || !byID["two"] {
		t.Errorf("Expected one and two, got %v", byID)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	config := createValidConfig()
	config.Name = "Saved"
	config.Seed = 5
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.yaml")); err != nil {
		t.Fatalf("Expected saved.yaml on disk: %v", err)
	}

	// round-trip through disk
	if err := manager.ReloadConfig("saved"); err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
	loaded, err := manager.LoadConfig("saved")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "Saved" || loaded.Seed != 5 || len(loaded.TreeHeights) != 3 {
		t.Errorf("Unexpected reloaded config %+v", loaded)
	}

	invalid := createValidConfig()
	invalid.StepDuration = 0
	if err := manager.SaveConfig("bad", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a bad name, got %v", err)
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	classic := createValidConfig()
	classic.Name = "Classic"
	writeConfigFile(t, dir, "classic.yaml", classic)
	writeConfigFile(t, dir, "other.yaml", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if manager.GetDefault().Name != "Test Config" {
		t.Errorf("Expected other as default, got %q", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	manager.RefreshCache()
	if manager.GetDefault().Name != "Classic" {
		t.Errorf("Expected refresh to restore classic default, got %q", manager.GetDefault().Name)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected only the default cached after refresh, got %d", manager.Count())
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d.yaml", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 5 {
		t.Errorf("Expected 5 configs in cache, got %d", manager.Count())
	}
}

func TestShippedConfigsAreValid(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to open shipped configs: %v", err)
	}
	for _, id := range []string{"classic", "vr", "dense"} {
		t.Run(id, func(t *testing.T) {
			config, err := manager.LoadConfig(id)
			if err != nil {
				t.Fatalf("LoadConfig(%s): %v", id, err)
			}
			if _, err := engine.NewEngine(config); err != nil {
				t.Errorf("Engine rejected %s: %v", id, err)
			}
		})
	}
	if manager.GetDefault().Name != "classic" {
		t.Errorf("Expected classic default, got %q", manager.GetDefault().Name)
	}

	vr, _ := manager.LoadConfig("vr")
	if vr.StepDuration != 0.3 {
		t.Errorf("Expected vr step duration 0.3, got %v", vr.StepDuration)
	}
}
