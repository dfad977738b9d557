// ABOUTME: HMAC-SHA256 verification of Telegram Mini App init data
// ABOUTME: Rebuilds the data-check string, compares hashes in constant time, enforces auth_date age

package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is how old auth_date may be before init data is rejected.
const DefaultMaxAge = 24 * time.Hour

// webAppDataLabel is the fixed HMAC key Telegram uses to derive the Mini App secret.
const webAppDataLabel = "WebAppData"

// Verifier checks init data signatures for a single bot token.
// It is immutable after construction and safe for concurrent use.
type Verifier struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxAge sets the freshness window. Non-positive values keep the default.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

// WithClock overrides the time source used for the freshness check.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier derives the verification key from botToken.
func NewVerifier(botToken string, opts ...Option) (*Verifier, error) {
	if botToken == "" {
		return nil, errors.New("initdata: bot token is required")
	}

	v := &Verifier{
		secretKey: deriveSecretKey(botToken),
		maxAge:    DefaultMaxAge,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// MaxAge returns the configured freshness window.
func (v *Verifier) MaxAge() time.Duration {
	return v.maxAge
}

// Verify checks the hash and auth_date of fields. On success it returns a copy of the
// fields with hash and signature removed. The input map is not modified.
func (v *Verifier) Verify(fields Fields) (Fields, error) {
	supplied, ok := fields[FieldHash]
	if !ok || supplied == "" {
		return nil, ErrMissingSignature
	}

	signed := fields.Clone()
	delete(signed, FieldHash)
	delete(signed, FieldSignature)

	expected := computeHash(v.secretKey, DataCheckString(signed))
	if !hmac.Equal([]byte(expected), []byte(supplied)) {
		return nil, ErrInvalidSignature
	}

	raw, ok := signed[FieldAuthDate]
	if !ok {
		return nil, fmt.Errorf("%w: auth_date missing", ErrInvalidTimestamp)
	}
	authDate, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: auth_date is not an integer", ErrInvalidTimestamp)
	}

	if authDate < 0 {
		return nil, fmt.Errorf("%w: auth_date is negative", ErrInvalidTimestamp)
	}

	// compare against the cutoff so a huge gap cannot overflow into a "future" age
	now := v.now().Unix()
	if authDate < now-int64(v.maxAge/time.Second) {
		return nil, fmt.Errorf("%w: issued %ds ago", ErrCredentialExpired, now-authDate)
	}

	return signed, nil
}

// DataCheckString renders fields as sorted "name=value" lines joined by "\n".
// Callers must strip hash and signature first.
func DataCheckString(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// Sign computes the hash Telegram would attach to fields for botToken.
// hash and signature entries in fields are ignored.
func Sign(fields Fields, botToken string) string {
	signed := fields.Clone()
	delete(signed, FieldHash)
	delete(signed, FieldSignature)
	return computeHash(deriveSecretKey(botToken), DataCheckString(signed))
}

func deriveSecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataLabel))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func computeHash(secretKey []byte, dataCheckString string) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}
