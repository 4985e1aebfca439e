package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/lane-runner/game/config"
	"github.com/wricardo/lane-runner/game/engine"
)

const shippedConfigs = "../../configs"

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"analyze"}, args...))
	return out.String(), err
}

func TestValidate_ShippedConfigs(t *testing.T) {
	out, err := runApp(t, "--config-dir", shippedConfigs, "validate")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if n := strings.Count(out, "ok   "); n != 3 {
		t.Errorf("Expected 3 valid configs, got %d:\n%s", n, out)
	}
	for _, name := range []string{"classic", "dense", "vr"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected %s in output", name)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.yaml"), "name: good\n")
	writeFile(t, filepath.Join(dir, "bad.yaml"), "name: bad\nmin_lane: 5\nmax_lane: -5\nstep_duration: 0\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	out, err := runApp(t, "--config-dir", dir, "validate")
	if err == nil {
		t.Fatalf("Expected validation to fail:\n%s", out)
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "FAIL "+filepath.Join(dir, "bad.yaml")) {
		t.Errorf("Expected bad.yaml to fail:\n%s", out)
	}
	// every problem is listed on its own line
	if lines := strings.Count(out, "     config validation:"); lines < 2 {
		t.Errorf("Expected several problems listed, got %d:\n%s", lines, out)
	}
}

func TestValidate_NamedTargets(t *testing.T) {
	out, err := runApp(t, "--config-dir", shippedConfigs, "validate", "dense", "missing")
	if err == nil {
		t.Fatal("Expected an error for a missing config")
	}
	if !strings.Contains(out, "ok   "+filepath.Join(shippedConfigs, "dense.yaml")) {
		t.Errorf("Expected dense to resolve by name:\n%s", out)
	}
	if !strings.Contains(out, "FAIL missing") {
		t.Errorf("Expected missing to fail:\n%s", out)
	}
}

func TestResolveConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "alpha.json"), "{}")

	tests := []struct {
		target  string
		want    string
		wantErr bool
	}{
		{"alpha", filepath.Join(dir, "alpha.json"), false},
		{"alpha.yaml", filepath.Join(dir, "alpha.json"), false},
		{filepath.Join(dir, "alpha.json"), filepath.Join(dir, "alpha.json"), false},
		{"beta", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := resolveConfigFile(dir, tt.target)
			if tt.wantErr {
				if !errors.Is(err, config.ErrConfigNotFound) {
					t.Fatalf("Expected ErrConfigNotFound, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestRows(t *testing.T) {
	args := []string{"--config-dir", shippedConfigs, "rows", "--config", "classic", "--seed", "42", "--from=-1", "--to=5"}
	out, err := runApp(t, args...)
	if err != nil {
		t.Fatalf("rows failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "classic, seed 42" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if len(lines) != 8 {
		t.Fatalf("Expected header and 7 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[len(lines)-1], "grass") {
		t.Errorf("Expected the bottom row to be grass, got %q", lines[len(lines)-1])
	}
	if !strings.Contains(lines[len(lines)-2], "@") {
		t.Errorf("Expected the player on row 0, got %q", lines[len(lines)-2])
	}

	again, _ := runApp(t, args...)
	if again != out {
		t.Error("Expected the same seed to print the same rows")
	}
}

func TestRows_JSON(t *testing.T) {
	out, err := runApp(t, "--config-dir", shippedConfigs, "rows", "-c", "dense", "--from", "3", "--to", "6", "--json")
	if err != nil {
		t.Fatalf("rows failed: %v", err)
	}

	var resp struct {
		Config string       `json:"config"`
		Seed   int64        `json:"seed"`
		Rows   []engine.Row `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, out)
	}
	if resp.Config != "dense" || resp.Seed == 0 {
		t.Errorf("Unexpected header %+v", resp)
	}
	if len(resp.Rows) != 4 || resp.Rows[0].Index != 3 {
		t.Fatalf("Expected rows 3..6, got %d rows", len(resp.Rows))
	}
	for _, row := range resp.Rows {
		if row.IsRoad() && len(row.Vehicles) == 0 {
			t.Errorf("Road row %d has no vehicles", row.Index)
		}
	}
}

func TestRows_InvalidRange(t *testing.T) {
	if _, err := runApp(t, "--config-dir", shippedConfigs, "rows", "--from", "5", "--to", "1"); err == nil {
		t.Error("Expected an error for an inverted range")
	}
}

func TestAutoplay(t *testing.T) {
	out, err := runApp(t, "--config-dir", shippedConfigs, "autoplay", "-c", "dense", "--seed", "7", "--runs", "2", "--max-time", "5")
	if err != nil {
		t.Fatalf("autoplay failed: %v\n%s", err, out)
	}
	for _, want := range []string{"run 1 seed 7:", "run 2 seed 7:", "best score"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestAutoplay_InvalidDt(t *testing.T) {
	if _, err := runApp(t, "--config-dir", shippedConfigs, "autoplay", "--dt", "0"); err == nil {
		t.Error("Expected an error for dt 0")
	}
}

func TestPlayRun_StopsAtMaxTime(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Seed = 99
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	result, err := playRun(eng, 0.05, 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status == engine.StatusRunning && result.Elapsed < 1 {
		t.Errorf("Expected the run to last until max time, got %.2fs", result.Elapsed)
	}
	if result.Score < 0 {
		t.Errorf("Unexpected score %d", result.Score)
	}
}

func TestTowardOpenLane(t *testing.T) {
	cfg := engine.DefaultConfig()
	forest := func(lanes ...int) *engine.Row {
		row := &engine.Row{Index: 1, Type: engine.Forest}
		for _, l := range lanes {
			row.Trees = append(row.Trees, engine.Tree{Lane: l})
		}
		return row
	}

	tests := []struct {
		name   string
		row    *engine.Row
		lane   int
		want   engine.Direction
		wantOK bool
	}{
		{"left is closer", forest(0, 1, 2), 0, engine.Left, true},
		{"right is closer", forest(-2, -1, 0), 0, engine.Right, true},
		{"ties go left", forest(0), 0, engine.Left, true},
		{"edge", forest(cfg.MinLane, cfg.MinLane+1), cfg.MinLane, engine.Right, true},
		{"far right", forest(-4, -3, -2, -1, 0, 1), -1, engine.Right, true},
	}
	full := forest()
	for l := cfg.MinLane; l <= cfg.MaxLane; l++ {
		full.Trees = append(full.Trees, engine.Tree{Lane: l})
	}
	tests = append(tests, struct {
		name   string
		row    *engine.Row
		lane   int
		want   engine.Direction
		wantOK bool
	}{"no open lane", full, 0, "", false})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := towardOpenLane(cfg, tt.row, tt.lane)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Expected %s/%v, got %s/%v", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
