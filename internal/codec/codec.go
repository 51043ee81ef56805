// Package codec implements the binary-safe JSON encoding used to store
// opaque byte payloads inside an otherwise arbitrary JSON value tree.
// Any []byte found anywhere in the tree is replaced by a tagged object
// on encode and reversed on decode, so the round trip is lossless.
package codec

import "encoding/base64"

// binTag is the JSON object key used to mark an encoded byte string.
const binTag = "__bin"

// EncodeForJSON walks v and replaces every []byte leaf with a tagged
// object {"__bin": "<base64>"} so the result can be passed to
// encoding/json without losing binary data. Maps, slices and nested
// structures of interface{} (the shape produced by json.Unmarshal into
// interface{}, and the shape callers are expected to build values in)
// are walked recursively; any other type is returned unchanged.
func EncodeForJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return map[string]interface{}{binTag: base64.StdEncoding.EncodeToString(t)}
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = EncodeForJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = EncodeForJSON(val)
		}
		return out
	default:
		return v
	}
}

// DecodeFromJSON reverses EncodeForJSON: any {"__bin": "<base64>"}
// object becomes a []byte again, recursively.
func DecodeFromJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 1 {
			if encoded, ok := t[binTag]; ok {
				if s, ok := encoded.(string); ok {
					if b, err := base64.StdEncoding.DecodeString(s); err == nil {
						return b
					}
				}
			}
		}
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = DecodeFromJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = DecodeFromJSON(val)
		}
		return out
	default:
		return v
	}
}
