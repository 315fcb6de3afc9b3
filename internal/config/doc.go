// Package config loads and validates relay configuration from YAML.
//
// Configuration sources, in order:
//  1. YAML file (path from -config flag)
//  2. ${VAR} environment expansion inside the file
//  3. Defaults for optional fields (applyDefaults)
//
// LoadAndValidate is the entry point used by the daemons.
package config
