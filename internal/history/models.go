package history

import "time"

// BatchRecord is one completed run as persisted to the history database.
type BatchRecord struct {
	ID          string
	Label       string
	Roots       []string
	Disposition string
	OutputPath  string
	TotalItems  int
	Succeeded   int
	Skipped     int
	Failed      int
	SavedBytes  int64
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// ItemRecord is one source file's outcome within a recorded batch.
type ItemRecord struct {
	BatchID      string
	SourcePath   string
	State        string
	Failure      string
	OriginalSize int64
	NewSize      int64
	SavedBytes   int64
	OutputPath   string
	Skipped      bool
	Duration     time.Duration
}

// Stats aggregates the whole history table for the stats command.
type Stats struct {
	Batches         int
	Items           int
	TotalSavedBytes int64
}
