// Package config handles configuration loading and management for hookspec.
//
// It provides functionality for:
//   - Loading configuration from .hookspec.json, hookspec.json, .hookspec.yaml
//     or hookspec.yaml (YAML files may also use the .yml extension)
//   - Default configuration values
//   - Named environments and database targets
package config
