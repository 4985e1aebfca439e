// Command analyze inspects lane runner configurations and worlds without
// starting a server. It validates configuration files, prints the rows a
// seed generates, and plays headless runs with a simple lane-gap policy to
// smoke test a configuration's difficulty.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/lane-runner/game/config"
	"github.com/wricardo/lane-runner/game/engine"
)

var configExtensions = []string{".yaml", ".yml", ".json"}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "inspect lane runner configurations and worlds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check configuration files and list every problem",
				ArgsUsage: "[name or file ...]",
				Action:    validateAction,
			},
			{
				Name:  "rows",
				Usage: "print the rows a seed generates",
				Flags: []cli.Flag{
					configFlag(),
					seedFlag(),
					&cli.IntFlag{Name: "from", Value: 1, Usage: "first row"},
					&cli.IntFlag{Name: "to", Value: 20, Usage: "last row"},
					&cli.BoolFlag{Name: "json", Usage: "print rows as JSON"},
				},
				Action: rowsAction,
			},
			{
				Name:  "autoplay",
				Usage: "play headless runs and report the scores reached",
				Flags: []cli.Flag{
					configFlag(),
					seedFlag(),
					&cli.IntFlag{Name: "runs", Value: 1, Usage: "number of runs"},
					&cli.FloatFlag{Name: "dt", Value: 1.0 / 30, Usage: "seconds per frame"},
					&cli.FloatFlag{Name: "max-time", Value: 120, Usage: "world seconds per run"},
					&cli.BoolFlag{Name: "trace", Usage: "print every completed step"},
				},
				Action: autoplayAction,
			},
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "classic", Usage: "configuration name or file"}
}

func seedFlag() cli.Flag {
	return &cli.Int64Flag{Name: "seed", Usage: "world seed (0 uses the config's seed, or a random one)"}
}

// resolveConfigFile maps a name or path to an existing configuration file
func resolveConfigFile(dir, target string) (string, error) {
	if _, err := os.Stat(target); err == nil && filepath.Ext(target) != "" {
		return target, nil
	}
	for _, ext := range configExtensions {
		path := filepath.Join(dir, strings.TrimSuffix(target, filepath.Ext(target))+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", target, config.ErrConfigNotFound)
}

// configFiles lists the configuration files of dir in name order
func configFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, known := range configExtensions {
			if ext == known {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	dir := cmd.String("config-dir")

	files := cmd.Args().Slice()
	if len(files) == 0 {
		var err error
		if files, err = configFiles(dir); err != nil {
			return err
		}
	}

	failed := 0
	for _, target := range files {
		path, err := resolveConfigFile(dir, target)
		var cfg *engine.GameConfig
		if err == nil {
			cfg, err = engine.LoadGameConfig(path)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", target)
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(out, "     %v\n", e)
			}
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s: %d lanes, %.2fs steps, lookahead %d)\n",
			path, cfg.Name, cfg.LaneCount(), cfg.StepDuration, cfg.Lookahead)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d configurations are invalid", failed, len(files))
	}
	return nil
}

// loadConfig reads the --config flag and applies --seed on top
func loadConfig(cmd *cli.Command) (*engine.GameConfig, error) {
	path, err := resolveConfigFile(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return nil, err
	}
	cfg, err := engine.LoadGameConfig(path)
	if err != nil {
		return nil, err
	}
	if seed := cmd.Int64("seed"); seed != 0 {
		cfg.Seed = seed
	}
	return cfg, nil
}

func rowsAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	from, to := cmd.Int("from"), cmd.Int("to")
	if to < from {
		return fmt.Errorf("invalid row range [%d, %d]", from, to)
	}

	// The engine settles the seed so the rows match a session with this config
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return err
	}
	gen := engine.NewRowGenerator(cfg, eng.Seed())

	rows := make([]engine.Row, 0, to-from+1)
	for i := from; i <= to; i++ {
		if i <= 0 {
			rows = append(rows, engine.Row{Index: i, Type: engine.Grass})
			continue
		}
		row, err := gen.Generate(i)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"config": cfg.Name, "seed": eng.Seed(), "rows": rows})
	}

	fmt.Fprintf(out, "%s, seed %d\n", cfg.Name, eng.Seed())
	start := engine.GridPosition{}
	for i := len(rows) - 1; i >= 0; i-- {
		fmt.Fprintln(out, engine.RenderRow(cfg, &rows[i], start))
	}
	return nil
}

func autoplayAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dt := cmd.Float("dt")
	if dt <= 0 || dt > 1 {
		return fmt.Errorf("dt must be in (0, 1], got %v", dt)
	}
	runs := cmd.Int("runs")
	if runs < 1 {
		runs = 1
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return err
	}
	if cmd.Bool("trace") {
		eng.SetScoreObserver(func(score int) {
			fmt.Fprintf(out, "  reached row %d\n", score)
		})
	}

	for run := 1; run <= runs; run++ {
		if run > 1 {
			if _, err := eng.Restart(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := playRun(eng, dt, cmd.Float("max-time"))
		if err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
		fmt.Fprintf(out, "run %d seed %d: %s\n", run, eng.Seed(), result)
	}

	fmt.Fprintf(out, "best score %d over %d run(s)\n", eng.GetBestScore(), runs)
	return nil
}
