package executor

import "fmt"

// StatementSpec is one named SQL statement submitted for execution. It is
// immutable once constructed; the engine never modifies it.
type StatementSpec struct {
	// Name uniquely identifies the statement within a batch. It is both the
	// human-readable label and the result correlation key.
	Name string

	// SQL is the statement text.
	SQL string

	// Params are positional bind values, optional.
	Params []interface{}

	// TimeoutSeconds overrides the engine's default per-statement timeout
	// when greater than zero.
	TimeoutSeconds int
}

// Batch is an ordered collection of statement specs with unique names.
// Submission order is preserved; transaction mode executes in this order and
// reports are emitted in this order regardless of completion order.
type Batch struct {
	specs []StatementSpec
	index map[string]int
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{index: make(map[string]int)}
}

// Add appends a statement to the batch. A duplicate name is a collision
// error, not last-write-wins: names are the correlation key and silently
// replacing an entry would drop submitted work.
func (b *Batch) Add(spec StatementSpec) error {
	if spec.Name == "" {
		return &ConfigError{Message: "statement name must not be empty"}
	}
	if spec.SQL == "" {
		return &ConfigError{Message: fmt.Sprintf("statement %q has empty sql", spec.Name)}
	}
	if _, ok := b.index[spec.Name]; ok {
		return &ConfigError{Message: fmt.Sprintf("duplicate statement name %q", spec.Name)}
	}
	b.index[spec.Name] = len(b.specs)
	b.specs = append(b.specs, spec)
	return nil
}

// Len returns the number of statements in the batch.
func (b *Batch) Len() int {
	return len(b.specs)
}

// Specs returns the statements in submission order. The returned slice is a
// copy; mutating it does not affect the batch.
func (b *Batch) Specs() []StatementSpec {
	specs := make([]StatementSpec, len(b.specs))
	copy(specs, b.specs)
	return specs
}

// Names returns the statement names in submission order.
func (b *Batch) Names() []string {
	names := make([]string, len(b.specs))
	for i, spec := range b.specs {
		names[i] = spec.Name
	}
	return names
}
