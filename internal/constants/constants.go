// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	// DefaultDir is the per-user state directory under $HOME.
	DefaultDir = ".imgbed"

	// VaultFile holds the remembered tokens and the active selection.
	VaultFile = "vault.json"

	// StateFile holds small key/value client state (device ID, session
	// markers, legacy migration leftovers).
	StateFile = "state.json"
)
