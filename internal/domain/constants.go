package domain

import "time"

// Save queue defaults
const (
	DefaultMaxRetries       = 5
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 5 * time.Minute
	DefaultDrainInterval    = 30 * time.Second
	DefaultInterRecordDelay = 250 * time.Millisecond
	DefaultAttemptTimeout   = 15 * time.Second
	DefaultStorageKey       = "smc_pending_saves"
)

// Operation ID format: save_<unix millis>_<suffix>
const (
	OperationIDPrefix       = "save_"
	OperationIDSuffixLength = 9
)
