package store

import (
	"context"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/codec"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Persist writes the already-validated, already-encoded record for uri
// at timestamp ts into the backing store.
type Persist func(ctx context.Context, uri string, ts int64, encoded interface{}) error

// Exists answers the schema registry's cross-URI existence checks
// (e.g. immutable://open's "not found" requirement) against the same
// backing store Persist writes to.
type Exists func(ctx context.Context, uri string) (bool, error)

// Accept runs the receive algorithm against a single backend:
// validate, encode, persist, then recurse into any compound
// transaction's outputs in order, aborting on the first failure.
// memstore, sqlstore and docstore all call this with their own Persist
// and Exists closures rather than re-implementing the algorithm three
// times.
func Accept(ctx context.Context, registry *schema.Registry, now func() int64, persist Persist, exists Exists, u string, value interface{}) ReceiveResult {
	parsed, err := uri.Parse(u)
	if err != nil {
		return ReceiveResult{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}

	readFn := func(candidate string) (bool, error) { return exists(ctx, candidate) }
	result := registry.Validate(parsed.ProgramKey(), schema.Context{URI: u, Value: value, Read: readFn})
	if !result.Valid {
		return ReceiveResult{Err: result.Err}
	}

	encoded := codec.EncodeForJSON(value)
	ts := now()
	if err := persist(ctx, u, ts, encoded); err != nil {
		return ReceiveResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}

	if outputs, ok := compoundOutputs(value); ok {
		for _, out := range outputs {
			sub := Accept(ctx, registry, now, persist, exists, out.URI, out.Value)
			if !sub.Accepted {
				return sub
			}
		}
	}

	return ReceiveResult{Accepted: true, Record: &Record{Ts: ts, Data: encoded}}
}

// output is one element of a compound transaction's outputs list.
type output struct {
	URI   string
	Value interface{}
}

// compoundOutputs recognises a compound transaction (a value with an
// "outputs" field shaped [[uri, value], ...]) and extracts its
// sub-transactions in order.
func compoundOutputs(value interface{}) ([]output, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}
	raw, ok := obj["outputs"]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	outputs := make([]output, 0, len(list))
	for _, entry := range list {
		pair, ok := entry.([]interface{})
		if !ok || len(pair) != 2 {
			continue
		}
		u, ok := pair[0].(string)
		if !ok {
			continue
		}
		outputs = append(outputs, output{URI: u, Value: pair[1]})
	}
	return outputs, true
}

// Decode reverses the binary-safe encoding applied by Accept before a
// record is returned to a caller through Read/ReadMulti.
func Decode(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	return &Record{Ts: rec.Ts, Data: codec.DecodeFromJSON(rec.Data)}
}
