package domain

// JobResult is the outcome of one bounded sync pass.
// Processed == Succeeded + Failed always holds.
type JobResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Add merges another pass into the aggregate.
func (r *JobResult) Add(other JobResult) {
	r.Processed += other.Processed
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
}

// SyncStats is the embedding coverage of the corpus, computed fresh from
// the durable store on every call.
type SyncStats struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
	Pending  int `json:"pending"`
}
