package constants

import "time"

// Engine constants
const (
	// HistoryLimit caps the recently-played list.
	HistoryLimit = 50
	// ResultCacheTTL bounds catalog search memoization.
	ResultCacheTTL = 5 * time.Minute
	// ResolveTimeout caps a full resolution attempt (four lookups).
	ResolveTimeout = 20 * time.Second
	// SeedFetchLimit is how many artist songs a singleton queue broadens to.
	SeedFetchLimit = 10
)

// Timing constants
const (
	PlayerUpdateInterval = 200 * time.Millisecond
	SearchDebounce       = 300 * time.Millisecond
	NoticeDuration       = 3 * time.Second
)

// UI constants
const (
	DefaultPlayerHeight = 4
	HomeRowSize         = 6
)

// Audio constants
const (
	VolumeStep = 0.05
)
