// ABOUTME: Decodes the init data query string into a flat field map
// ABOUTME: Lenient mode keeps the first value per key, strict mode rejects conflicting repeats

package initdata

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Credential errors. Every error returned by this package wraps exactly one of these.
var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrMissingSignature    = errors.New("missing signature")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrCredentialExpired   = errors.New("credential expired")
	ErrMissingIdentity     = errors.New("missing identity")
	ErrMalformedIdentity   = errors.New("malformed identity")
)

// Field names with protocol meaning.
const (
	FieldHash      = "hash"
	FieldSignature = "signature"
	FieldAuthDate  = "auth_date"
	FieldUser      = "user"
)

// Fields maps each init data field name to its single decoded value.
type Fields map[string]string

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Parse decodes raw init data, keeping the first value of any repeated key.
func Parse(raw string) (Fields, error) {
	return parse(raw, false)
}

// ParseStrict decodes raw init data and rejects keys that repeat with differing values.
func ParseStrict(raw string) (Fields, error) {
	return parse(raw, true)
}

func parse(raw string, strict bool) (Fields, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedCredential)
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	fields := make(Fields, len(values))
	for key, vals := range values {
		if key == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrMalformedCredential)
		}
		if strict {
			for _, v := range vals[1:] {
				if v != vals[0] {
					return nil, fmt.Errorf("%w: conflicting values for %q", ErrMalformedCredential, key)
				}
			}
		}
		fields[key] = vals[0]
	}

	return fields, nil
}

// Encode renders fields back into query string form with keys sorted.
func Encode(fields Fields) string {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	return values.Encode()
}
