package domain

// SyncBatchResult tallies one metrics sync run. A failed item never
// aborts the batch, so UpdatedCount+FailedCount equals the number of
// items fetched for the run.
type SyncBatchResult struct {
	UpdatedCount int `json:"updated_count"`
	FailedCount  int `json:"failed_count"`
}
