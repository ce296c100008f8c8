package models

// Result is the outcome of a provider action or submission.
type Result struct {
	successful bool
	operation  *Operation
	instrument *Instrument
	errors     []SubmissionError
	raw        any
}

type ResultOption func(*Result)

func WithOperation(op *Operation) ResultOption {
	return func(r *Result) { r.operation = op }
}

func WithInstrument(in *Instrument) ResultOption {
	return func(r *Result) { r.instrument = in }
}

func WithErrors(errs ...SubmissionError) ResultOption {
	return func(r *Result) { r.errors = append(r.errors, errs...) }
}

// NewResult builds a Result. A successful result must not carry errors;
// violating that is a bug in the calling adapter and panics.
func NewResult(successful bool, raw any, opts ...ResultOption) *Result {
	r := &Result{successful: successful, raw: raw}
	for _, opt := range opts {
		opt(r)
	}
	if r.successful && len(r.errors) > 0 {
		panic("models: successful result with errors")
	}
	return r
}

func (r *Result) Successful() bool        { return r.successful }
func (r *Result) Failed() bool            { return !r.successful }
func (r *Result) Operation() *Operation   { return r.operation }
func (r *Result) Instrument() *Instrument { return r.instrument }
func (r *Result) Raw() any                { return r.raw }
func (r *Result) HasOperation() bool      { return r.operation != nil }
func (r *Result) HasInstrument() bool     { return r.instrument != nil }
func (r *Result) HasErrors() bool         { return len(r.errors) > 0 }

// Errors returns a copy of the submission errors in vendor order.
func (r *Result) Errors() []SubmissionError {
	out := make([]SubmissionError, len(r.errors))
	copy(out, r.errors)
	return out
}

// ErrorsFor groups the errors for target by field.
func (r *Result) ErrorsFor(target Target) map[Field][]SubmissionError {
	out := make(map[Field][]SubmissionError)
	for _, e := range r.errors {
		if e.Target == target {
			out[e.Field] = append(out[e.Field], e)
		}
	}
	return out
}

func (r *Result) ErrorsForField(target Target, field Field) []SubmissionError {
	var out []SubmissionError
	for _, e := range r.errors {
		if e.Target == target && e.Field == field {
			out = append(out, e)
		}
	}
	return out
}
