// internal/config/constants.go
package config

import "time"

// Application information.
const (
	AppName    = "language-reminder-server"
	AppVersion = "1.0.0"
)

// Default settings. The easy interval and ingest grace are deliberately
// named constants: historical deployments disagreed on both values, so the
// chosen defaults are configuration, not accidents.
const (
	DefaultServerPort        = ":8080"
	DefaultLogLevel          = "info"
	DefaultReviewLimit       = 20
	DefaultDedupEnabled      = true
	DefaultReviewDedupWindow = 30 * time.Second
	DefaultIngestGrace       = time.Duration(0)
	DefaultEasyIntervalDays  = 3
	// FirstPassEasyIntervalDays is the alternative easy interval some
	// deployments ran with; select it via app.easy_interval_days.
	FirstPassEasyIntervalDays = 7
	DefaultPartition          = "en"
)
