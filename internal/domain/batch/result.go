package batch

// Status is the outcome of one synthesized batch.
type Status string

// Batch status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of one model call over a batch of norms.
type Result struct {
	id     string
	status Status
	text   string
	err    error
}

// NewOK creates a successful batch result carrying the partial answer.
func NewOK(id, text string) Result { return Result{id: id, status: StatusOK, text: text} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the batch label (e.g. "text-0").
func (r Result) ID() string { return r.id }

// Status returns the outcome.
func (r Result) Status() Status { return r.status }

// Text returns the partial answer; empty for failed batches.
func (r Result) Text() string { return r.text }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
