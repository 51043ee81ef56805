// Package schema implements the program-key-keyed validator registry.
// A schema maps a program key (protocol://domain) to a validation
// function; the registry is built once at boot and never mutated
// afterward.
package schema

import "github.com/ethdenver2026/uristore/internal/apierr"

// ReadFunc is the node's own read path, handed to validators so they
// can perform cross-URI checks such as uniqueness of immutable writes
// without a back-pointer to the node itself.
type ReadFunc func(uri string) (exists bool, err error)

// Context is the input to a Validator.
type Context struct {
	URI   string
	Value interface{}
	Read  ReadFunc
}

// Result is a Validator's verdict.
type Result struct {
	Valid bool
	Err   error
}

// Validator validates a transaction's value for one program key.
type Validator func(ctx Context) Result

// Registry is an immutable program-key → Validator map.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry builds an empty registry. Call Register for each program
// key before handing the registry to a Node — once wired in, the
// registry is read-only.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register adds a validator for programKey. Intended for boot-time
// setup only.
func (r *Registry) Register(programKey string, v Validator) {
	r.validators[programKey] = v
}

// ProgramKeys returns every registered program key, used to answer
// GET /api/v1/schema.
func (r *Registry) ProgramKeys() []string {
	keys := make([]string, 0, len(r.validators))
	for k := range r.validators {
		keys = append(keys, k)
	}
	return keys
}

// Validate dispatches to the validator registered for the transaction's
// program key, returning UnknownProgram if none is registered.
func (r *Registry) Validate(programKey string, ctx Context) Result {
	v, ok := r.validators[programKey]
	if !ok {
		return Result{Valid: false, Err: apierr.New(apierr.UnknownProgram, "unknown program: "+programKey)}
	}
	return v(ctx)
}
