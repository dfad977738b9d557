// ABOUTME: Tests for init data parsing and identity extraction
// ABOUTME: Covers lenient and strict decoding plus the user field shape rules

package initdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, err := Parse("query_id=AAH1&user=%7B%22id%22%3A42%2C%22username%22%3A%22neo%22%7D&auth_date=1700000000&hash=abc")
	require.NoError(t, err)

	assert.Equal(t, Fields{
		"query_id":  "AAH1",
		"user":      `{"id":42,"username":"neo"}`,
		"auth_date": "1700000000",
		"hash":      "abc",
	}, got)
}

func TestParse_FirstValueWins(t *testing.T) {
	got, err := Parse("a=1&a=2&b=3")
	require.NoError(t, err)
	assert.Equal(t, "1", got["a"])
	assert.Equal(t, "3", got["b"])
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace", raw: "   "},
		{name: "bad escape", raw: "user=%zz&hash=abc"},
		{name: "semicolon separator", raw: "a=1;b=2"},
		{name: "empty key", raw: "=value&hash=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedCredential)
		})
	}
}

func TestParseStrict(t *testing.T) {
	_, err := ParseStrict("a=1&a=2")
	assert.ErrorIs(t, err, ErrMalformedCredential)

	got, err := ParseStrict("a=1&a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, Fields{"a": "1", "b": "2"}, got)
}

func TestEncode_RoundTrip(t *testing.T) {
	fields := Fields{
		"user":      `{"id":1,"first_name":"Zoë & co"}`,
		"auth_date": "1",
		"hash":      "ff",
	}
	got, err := Parse(Encode(fields))
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestExtractIdentity(t *testing.T) {
	got, err := ExtractIdentity(Fields{"user": `{"id":42,"username":"neo","first_name":"Thomas","is_bot":false}`})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ID)
	require.NotNil(t, got.Username)
	assert.Equal(t, "neo", *got.Username)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, "Thomas", *got.FirstName)
}

func TestExtractIdentity_LargeID(t *testing.T) {
	got, err := ExtractIdentity(Fields{"user": `{"id":7000000000123}`})
	require.NoError(t, err)
	assert.Equal(t, int64(7000000000123), got.ID)
}

func TestExtractIdentity_Missing(t *testing.T) {
	_, err := ExtractIdentity(Fields{"auth_date": "1"})
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestExtractIdentity_Malformed(t *testing.T) {
	tests := []struct {
		name string
		user string
	}{
		{name: "empty", user: ""},
		{name: "not json", user: "neo"},
		{name: "array", user: `[{"id":1}]`},
		{name: "null", user: "null"},
		{name: "missing id", user: `{"username":"neo"}`},
		{name: "string id", user: `{"id":"42"}`},
		{name: "float id", user: `{"id":4.2}`},
		{name: "zero id", user: `{"id":0}`},
		{name: "negative id", user: `{"id":-5}`},
		{name: "truncated", user: `{"id":42`},
		{name: "wrong username type", user: `{"id":42,"username":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractIdentity(Fields{"user": tt.user})
			assert.ErrorIs(t, err, ErrMalformedIdentity)
		})
	}
}
