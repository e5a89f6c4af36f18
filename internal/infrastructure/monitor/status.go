package monitor

import "time"

type Status struct {
	PostgreSQL    bool      `json:"postgresql"`
	Redis         bool      `json:"redis"`
	Snapshots     bool      `json:"snapshots"`
	SnapshotCount int       `json:"snapshot_count"`
	LastCheck     time.Time `json:"last_check"`
}
