package models

import "time"

// ArchiveSweepResult reports one retention sweep.
type ArchiveSweepResult struct {
	Cutoff   time.Time `json:"cutoff"`
	DryRun   bool      `json:"dry_run"`
	Folios   []string  `json:"folios"`
	Archived int64     `json:"archived"`
}
