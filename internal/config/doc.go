// Package config loads picorope settings.
//
// Settings are merged from four layers, highest priority first:
//
//	┌─────────────────────────────┐
//	│  4. Runtime overrides (Set) │  ← command-line flags
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← PICOROPE_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← --config picorope.toml | .yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// Paths are dot-separated with camelCase setting names, for example
// "render.operationLimit". Environment variables map to paths by
// lower-casing the first segment and camel-casing the rest:
// PICOROPE_RENDER_OPERATION_LIMIT sets render.operationLimit.
//
// # Basic Usage
//
//	cfg, err := config.Load(ctx, "picorope.toml")
//	if err != nil {
//	    return err
//	}
//	stress := cfg.Stress()
package config
