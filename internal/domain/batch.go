package domain

// BatchStatus is the provider-side lifecycle state of a batch job.
type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchEnded      BatchStatus = "ended"
	BatchCanceling  BatchStatus = "canceling"
)

// IsTerminal returns true once the provider will make no further progress.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchEnded
}

// BatchResultKind is the per-request outcome within a completed batch.
type BatchResultKind string

const (
	BatchResultSucceeded BatchResultKind = "succeeded"
	BatchResultErrored   BatchResultKind = "errored"
	BatchResultExpired   BatchResultKind = "expired"
	BatchResultCanceled  BatchResultKind = "canceled"
)

// BatchRequest is one generation request inside a provider batch. The
// CorrelationKey is caller-assigned and is the only way results are joined
// back to domain entities, so it must be unique within a batch.
type BatchRequest struct {
	CorrelationKey string
	System         string
	Prompt         string
	MaxTokens      int
}

// BatchResult is the outcome of one request in a completed batch.
type BatchResult struct {
	CorrelationKey string
	Kind           BatchResultKind
	Content        string
	ErrorDetail    string
}
