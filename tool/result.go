package tool

import "fmt"

type Result interface {
	// Label returns a short single line description of the entire run.
	Label() string
	// Content returns the text handed back to the model.
	Content() string
	// Error returns the error that failed the run, if any.
	Error() error
}

type result struct {
	label   string
	content string
	err     error
}

func (r *result) Label() string {
	return r.label
}

func (r *result) Content() string {
	return r.content
}

func (r *result) Error() error {
	return r.err
}

// Success returns a successful result carrying content for the model.
func Success(label, content string) Result {
	return &result{label: label, content: content}
}

// Error returns a failed result. The error text still goes back to the
// model so it can react to the failure.
func Error(label string, err error) Result {
	return &result{label: label, content: fmt.Sprintf("ERROR: %s", err), err: err}
}
