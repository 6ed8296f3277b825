// Package config provides configuration loading for formulax.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command-line flags the user set
//  2. Environment variables (FORMULAX_*)
//  3. Project config (.formulax/config.yml, or the file named by --config)
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: FORMULAX_
//   - Nested fields: Use underscores (FORMULAX_BATCH_SIZE)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
//
// Example configuration:
//
//	intermediate:
//	  prefix: _skip_
//	paths:
//	  documents: ["**/*.xlsx", "**/*.ods"]
//	  ignore: ["archive/**"]
//	extract:
//	  workers: 8
//	batch:
//	  size: 50
//	  format: xml
package config
