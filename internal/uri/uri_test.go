package uri

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    URI
		wantErr bool
	}{
		{"mutable://open/hello", URI{"mutable", "open", "hello"}, false},
		{"immutable://accounts/abc/profile", URI{"immutable", "accounts", "abc/profile"}, false},
		{"link://open", URI{"link", "open", ""}, false},
		{"://open/hello", URI{}, true},
		{"Mutable://open/hello", URI{}, true},
		{"mutable:///hello", URI{}, true},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %+v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestProgramKey(t *testing.T) {
	got, err := ProgramKey("mutable://accounts/abc/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "mutable://accounts" {
		t.Errorf("got %q, want mutable://accounts", got)
	}
}

func TestSubstitute(t *testing.T) {
	got := Substitute("mutable://accounts/:key/subscribers/:signature", map[string]string{
		":key":       "abc123",
		":signature": "deadbeef",
	})
	want := "mutable://accounts/abc123/subscribers/deadbeef"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHasDirectoryPrefix(t *testing.T) {
	if !HasDirectoryPrefix("mutable://open/a/b", "mutable://open/a") {
		t.Error("expected a/b to be under a")
	}
	if HasDirectoryPrefix("mutable://open/ab", "mutable://open/a") {
		t.Error("did not expect ab to be under a (no slash boundary)")
	}
	if !HasDirectoryPrefix("mutable://open/a", "mutable://open/a") {
		t.Error("exact match should satisfy the prefix check")
	}
}

func TestIsDirectory(t *testing.T) {
	if IsDirectory("mutable://open/a", "mutable://open/a") {
		t.Error("exact match is a file, not a directory")
	}
	if !IsDirectory("mutable://open/a/b", "mutable://open/a") {
		t.Error("a/b should be a directory entry under a")
	}
}
