package codec

import (
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []interface{}{
		"plain string",
		float64(42),
		map[string]interface{}{"hello": "world"},
		map[string]interface{}{"blob": []byte("hi there")},
		[]interface{}{[]byte{1, 2, 3}, "x", float64(9)},
		map[string]interface{}{
			"nested": map[string]interface{}{
				"data": []byte{0xDE, 0xAD, 0xBE, 0xEF},
			},
		},
	}

	for _, v := range cases {
		encoded := EncodeForJSON(v)
		decoded := DecodeFromJSON(encoded)
		if !reflect.DeepEqual(decoded, v) {
			t.Errorf("round trip mismatch: got %#v, want %#v", decoded, v)
		}
	}
}

func TestEncodeTagsBytes(t *testing.T) {
	encoded := EncodeForJSON([]byte("hi"))
	m, ok := encoded.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a tagged map, got %T", encoded)
	}
	if _, ok := m[binTag]; !ok {
		t.Errorf("expected %q key in encoded output", binTag)
	}
}

func TestDecodeLeavesNonBinMapsAlone(t *testing.T) {
	in := map[string]interface{}{"a": "b"}
	out := DecodeFromJSON(in)
	if !reflect.DeepEqual(out, in) {
		t.Errorf("expected unchanged map, got %#v", out)
	}
}
