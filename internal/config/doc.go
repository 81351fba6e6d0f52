// Package config loads, validates and watches the gatekeep configuration.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. GATEKEEP_* environment variables
//
// Load reads through an afero.Fs so tests can use an in-memory filesystem.
// A missing file is not an error; the defaults and environment still apply.
//
// Validate reports every problem at once, combined with multierr:
//
//	cfg, err := config.Load(afero.NewOsFs(), "gatekeep.toml")
//	if err != nil {
//	    return err
//	}
//	for _, problem := range multierr.Errors(cfg.Validate()) {
//	    log.Warn(problem)
//	}
//
// Watcher reloads the file when it changes on disk and hands the new
// configuration to a callback.
package config
