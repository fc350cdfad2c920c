package client

import "sync"

// Attempt is the record of one stream consumption attempt.
type Attempt struct {
	Number    int    `json:"number"`
	Err       string `json:"err,omitempty"`
	Succeeded bool   `json:"succeeded"`
}

// retryLog tracks consumption attempts per conversation. It is kept for
// inspection after the stream settles, so exhausted-budget failures can show
// what was tried.
type retryLog struct {
	mu       sync.Mutex
	attempts map[string][]Attempt
}

func newRetryLog() *retryLog {
	return &retryLog{attempts: make(map[string][]Attempt)}
}

// record appends one attempt outcome. An empty errMsg marks success.
func (r *retryLog) record(conversationID string, number int, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[conversationID] = append(r.attempts[conversationID], Attempt{
		Number:    number,
		Err:       errMsg,
		Succeeded: errMsg == "",
	})
}

// Attempts returns a copy of the attempt history for a conversation.
func (r *retryLog) Attempts(conversationID string) []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Attempt, len(r.attempts[conversationID]))
	copy(out, r.attempts[conversationID])
	return out
}

// reset clears the history for a conversation before a fresh stream start.
func (r *retryLog) reset(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, conversationID)
}
