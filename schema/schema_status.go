package schema

// SnapshotStatus reports the state of a snapshot store.
type SnapshotStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	SchemaVersion uint             `json:"schemaVersion"`
	Dirty         bool             `json:"dirty"`
	TableRows     map[string]int64 `json:"tableRows"`
	LatestChange  string           `json:"latestChange"` // most recent history row start
}
