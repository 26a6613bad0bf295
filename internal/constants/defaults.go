// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Server defaults.
const (
	// DefaultBaseURL points at a locally running backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultRequestTimeout is the default timeout for API calls.
	DefaultRequestTimeout = 30 * time.Second
)

// Pagination defaults.
const (
	// DefaultUploadsPageSize is the default page size for upload history.
	DefaultUploadsPageSize = 20
)

// Cross-device login flow.
const (
	// DefaultWebCodePollInterval is how often the CLI polls a web code's
	// status while waiting for the bot-side confirmation.
	DefaultWebCodePollInterval = 2 * time.Second

	// DefaultWebCodePollTimeout bounds the whole polling loop. Codes
	// expire server-side around the same horizon.
	DefaultWebCodePollTimeout = 5 * time.Minute
)

// Session upkeep.
const (
	// DefaultHeartbeatInterval is how often a long-lived client refreshes
	// its session's last-seen timestamp.
	DefaultHeartbeatInterval = 60 * time.Second
)
