// Package config provides configuration management for the lane runner.
//
// The config package handles:
//   - Loading game configurations from YAML or JSON files
//   - Validation before a configuration reaches an engine
//   - Default configuration selection
//   - Configuration discovery, listing and saving
//
// Configuration Format:
//
// A configuration file is decoded on top of the built-in classic values, so
// it only needs the keys it changes. A file without a name is named after
// its file stem. The extensions .yaml, .yml and .json are recognized and
// tried in that order.
//
// Shipped Configurations:
//   - classic: seventeen lanes at the standard hop speed
//   - vr: a slower, higher hop for head-mounted play
//   - dense: a narrow, seeded board with fast traffic and thick forests
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("dense")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is classic when present, otherwise the first valid file, and
// the built-in configuration when the directory holds nothing usable.
package config
