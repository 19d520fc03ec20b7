package pipeline

// quota counts fixpoint rounds and enforces the iteration limit.
type quota struct {
	limit   int
	current int
}

func newQuota(limit int) *quota {
	return &quota{limit: limit}
}

// check starts a round and fails once the limit is passed.
func (q *quota) check(runID string) error {
	q.current++
	if q.current > q.limit {
		return &IterationsExceededError{RunID: runID, Iterations: q.current, Limit: q.limit}
	}
	return nil
}
