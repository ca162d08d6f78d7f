package extraction

import "context"

// UserProvided wraps a caller-computed Result so it can be threaded
// through the same Strategy interface as Fast and LLM — useful for
// tests and for callers that run their own extraction pipeline but
// still want to go through the compound operations uniformly.
type UserProvided struct {
	Result Result
}

// Extract implements Strategy by returning the wrapped Result
// unconditionally; text, author, and agentName are ignored.
func (u UserProvided) Extract(_ context.Context, _, _, _ string) (Result, error) {
	return u.Result, nil
}
