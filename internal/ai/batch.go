package ai

import "strings"

// BatchStatus is the provider-side lifecycle state of a batch job.
type BatchStatus string

const (
	BatchValidating BatchStatus = "validating"
	BatchInProgress BatchStatus = "in_progress"
	BatchFinalizing BatchStatus = "finalizing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchExpired    BatchStatus = "expired"
	BatchCancelling BatchStatus = "cancelling"
	BatchCancelled  BatchStatus = "cancelled"
)

// IsFailure reports whether the batch ended without output.
func (s BatchStatus) IsFailure() bool {
	switch s {
	case BatchFailed, BatchExpired, BatchCancelled:
		return true
	}
	return false
}

// Batch is the subset of the OpenAI batch object the pipeline reads.
type Batch struct {
	ID               string            `json:"id"`
	Status           BatchStatus       `json:"status"`
	InputFileID      string            `json:"input_file_id"`
	OutputFileID     string            `json:"output_file_id"`
	ErrorFileID      string            `json:"error_file_id"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Errors           *batchErrors      `json:"errors,omitempty"`
	RequestCounts    struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"request_counts"`
}

type batchErrors struct {
	Data []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Line    *int   `json:"line"`
	} `json:"data"`
}

// FailureReason summarises why a batch failed, falling back to its status.
func (b Batch) FailureReason() string {
	if b.Errors != nil && len(b.Errors.Data) > 0 {
		msgs := make([]string, 0, len(b.Errors.Data))
		for _, e := range b.Errors.Data {
			if e.Code != "" {
				msgs = append(msgs, e.Code+": "+e.Message)
			} else {
				msgs = append(msgs, e.Message)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return "batch " + string(b.Status)
}
