// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.lens.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: User-editable prompt templates
//   - Watcher: Reloads a ConfigStore when its file changes
package file
