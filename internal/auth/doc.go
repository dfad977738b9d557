// Package auth authenticates Telegram Mini App users.
//
// # Gateway
//
// Gateway.Authenticate runs the full pipeline for one raw init-data string:
//
//	parse → verify signature and freshness → extract identity → upsert user
//
// Any stage failing stops the pipeline with that stage's error, so a forged or
// stale credential never touches the user table.
//
// # HTTP
//
// RequireInitData wraps handlers that need a verified caller. Clients send
//
//	Authorization: tma <raw init data>
//
// and handlers read the result with IdentityFromContext.
//
// HTTPStatus maps errors to responses:
//
//   - malformed credential or invalid input: 400
//   - signature, timestamp or identity failures: 403
//   - storage unavailable: 503
//   - anything else: 500
//
// Response bodies name the failing stage only. The computed hash, the data-check
// string and the derived key are never logged or returned.
package auth
