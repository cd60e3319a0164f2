// Package file provides file-based configuration adapters.
//
// Adapters:
//   - SettingsStore: TOML application settings with .env and environment overrides
//   - PromptStore: user-editable prompt templates with embedded defaults
package file
