// Package uri implements the canonical URI grammar used throughout the
// record store: protocol://domain/path, with an optional placeholder
// syntax substituted before schema dispatch.
package uri

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidURI is returned when a string does not match the canonical
// protocol://domain/path grammar.
var ErrInvalidURI = errors.New("invalid uri")

var protocolRE = regexp.MustCompile(`^[a-z][a-z+.\-]*$`)

// URI is a parsed protocol://domain/path value.
type URI struct {
	Protocol string
	Domain   string
	Path     string
}

// Parse splits s into protocol, domain and path. It fails with
// ErrInvalidURI when the protocol does not match [a-z][a-z+.\-]* or the
// domain is empty.
func Parse(s string) (URI, error) {
	schemeIdx := strings.Index(s, "://")
	if schemeIdx < 0 {
		return URI{}, ErrInvalidURI
	}
	protocol := s[:schemeIdx]
	if !protocolRE.MatchString(protocol) {
		return URI{}, ErrInvalidURI
	}

	rest := s[schemeIdx+3:]
	domain := rest
	path := ""
	if slash := strings.Index(rest, "/"); slash >= 0 {
		domain = rest[:slash]
		path = rest[slash+1:]
	}
	if domain == "" {
		return URI{}, ErrInvalidURI
	}

	return URI{Protocol: protocol, Domain: domain, Path: path}, nil
}

// String reassembles the canonical form protocol://domain/path.
func (u URI) String() string {
	if u.Path == "" {
		return u.Protocol + "://" + u.Domain
	}
	return u.Protocol + "://" + u.Domain + "/" + u.Path
}

// ProgramKey returns the schema registry key protocol://domain.
func (u URI) ProgramKey() string {
	return u.Protocol + "://" + u.Domain
}

// ProgramKey parses s and returns its program key in one step. It is a
// convenience wrapper for call sites that only need the dispatch key.
func ProgramKey(s string) (string, error) {
	u, err := Parse(s)
	if err != nil {
		return "", err
	}
	return u.ProgramKey(), nil
}

// Substitute replaces the :key and :signature placeholders in a template
// URI with the given values. Substitution is purely textual and must
// happen before the URI reaches the schema registry — placeholders are
// never persisted.
func Substitute(template string, values map[string]string) string {
	out := template
	for placeholder, value := range values {
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

// HasDirectoryPrefix reports whether candidate lies under prefix when
// prefix is treated as a directory — i.e. candidate equals prefix, or
// candidate starts with prefix plus a trailing slash. Used by listing,
// where path comparisons use prefix semantics with an implicit
// trailing slash for directory matches.
func HasDirectoryPrefix(candidate, prefix string) bool {
	if candidate == prefix {
		return true
	}
	dirPrefix := prefix
	if !strings.HasSuffix(dirPrefix, "/") {
		dirPrefix += "/"
	}
	return strings.HasPrefix(candidate, dirPrefix)
}

// IsDirectory reports whether candidate is a strict descendant of
// prefix (i.e. matches the prefix but carries at least one more path
// segment) rather than an exact file match.
func IsDirectory(candidate, prefix string) bool {
	return candidate != prefix && HasDirectoryPrefix(candidate, prefix)
}
