// ABOUTME: Decodes the signed user field of init data into an Identity
// ABOUTME: Requires a JSON object with a positive integer id

package initdata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identity is the Telegram user that signed the init data.
type Identity struct {
	ID        int64   `json:"id"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
}

// ExtractIdentity decodes the user field of verified fields.
func ExtractIdentity(fields Fields) (*Identity, error) {
	raw, ok := fields[FieldUser]
	if !ok {
		return nil, ErrMissingIdentity
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: user is not an object", ErrMalformedIdentity)
	}

	var decoded struct {
		ID        *int64  `json:"id"`
		Username  *string `json:"username"`
		FirstName *string `json:"first_name"`
	}
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if decoded.ID == nil {
		return nil, fmt.Errorf("%w: id missing", ErrMalformedIdentity)
	}
	if *decoded.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrMalformedIdentity)
	}

	return &Identity{
		ID:        *decoded.ID,
		Username:  decoded.Username,
		FirstName: decoded.FirstName,
	}, nil
}
