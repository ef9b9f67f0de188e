package notify

import "time"

// SnapshotVersion is written by exports and compared on import.
const SnapshotVersion = "1.0"

// Stats summarizes the stored notifications.
type Stats struct {
	Total        int          `json:"total"`
	Visible      int          `json:"visible"`
	ByType       map[Type]int `json:"byType"`
	Persistent   int          `json:"persistent"`
	ActiveTimers int          `json:"activeTimers"`
	Oldest       *time.Time   `json:"oldest,omitempty"`
	Newest       *time.Time   `json:"newest,omitempty"`

	// Error is set when the statistics could not be computed; the counts are
	// then zeroed.
	Error string `json:"error,omitempty"`
}

// Snapshot is the portable form of Settings. An export fills every field of
// Settings; an import applies only the fields present, so older or partial
// snapshots still load.
type Snapshot struct {
	Settings  *SettingsUpdate `json:"settings"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
}
