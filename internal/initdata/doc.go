// Package initdata verifies Telegram Mini App init data.
//
// # Wire Format
//
// Init data is a URL query string forwarded by the Mini App client:
//
//	query_id=AAH...&user=%7B%22id%22%3A42%7D&auth_date=1700000000&hash=5f3c...
//
// Every field except hash and signature takes part in the signed payload.
//
// # Verification
//
// The data-check string is built by sorting the remaining field names byte-wise and
// joining "name=value" pairs with a single newline. Telegram signs it as
//
//	secret_key = HMAC_SHA256(key = "WebAppData", msg = bot_token)
//	hash       = hex(HMAC_SHA256(key = secret_key, msg = data_check_string))
//
// Only this derivation is accepted. The older Login Widget scheme, which uses
// SHA256(bot_token) as the key, is rejected as an invalid signature.
//
// The supplied hash is compared in constant time, then auth_date is checked against
// the configured maximum age (24h by default). Timestamps in the future are accepted.
//
// # Usage
//
//	v, err := initdata.NewVerifier(botToken, initdata.WithMaxAge(time.Hour))
//	fields, err := initdata.Parse(raw)
//	fields, err = v.Verify(fields)
//	identity, err := initdata.ExtractIdentity(fields)
//
// The data-check string, derived key and computed hash are sensitive and are never
// logged or returned in errors.
package initdata
