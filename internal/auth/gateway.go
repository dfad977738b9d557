// ABOUTME: Authentication gateway composing init-data parsing, verification and user upsert
// ABOUTME: Maps credential and storage errors to HTTP statuses and metric outcomes

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aa-tracker/aa-tracker/internal/initdata"
	"github.com/aa-tracker/aa-tracker/internal/metrics"
	"github.com/aa-tracker/aa-tracker/internal/store"
)

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	// StrictParsing rejects init data that repeats a field with differing values.
	StrictParsing bool
	Logger        *slog.Logger
}

// Gateway authenticates raw init data and records the user.
type Gateway struct {
	verifier *initdata.Verifier
	users    store.UserStore
	strict   bool
	logger   *slog.Logger
}

// NewGateway creates a Gateway. verifier and users must be non-nil.
func NewGateway(verifier *initdata.Verifier, users store.UserStore, opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		verifier: verifier,
		users:    users,
		strict:   opts.StrictParsing,
		logger:   logger.With("component", "auth"),
	}
}

// Authenticate parses and verifies raw, extracts the identity and upserts the user.
// The first failing stage short-circuits; nothing is written unless verification passed.
func (g *Gateway) Authenticate(ctx context.Context, raw string) (*initdata.Identity, error) {
	identity, err := g.authenticate(ctx, raw)
	outcome := Outcome(err)
	metrics.AuthAttempts.WithLabelValues(outcome).Inc()

	if err != nil {
		g.logger.Info("authentication rejected", "outcome", outcome)
		return nil, err
	}

	g.logger.Debug("authenticated", "telegram_id", identity.ID)
	return identity, nil
}

func (g *Gateway) authenticate(ctx context.Context, raw string) (*initdata.Identity, error) {
	parse := initdata.Parse
	if g.strict {
		parse = initdata.ParseStrict
	}

	fields, err := parse(raw)
	if err != nil {
		return nil, err
	}

	fields, err = g.verifier.Verify(fields)
	if err != nil {
		return nil, err
	}

	identity, err := initdata.ExtractIdentity(fields)
	if err != nil {
		return nil, err
	}

	err = g.users.UpsertUser(ctx, &store.User{
		TelegramID: identity.ID,
		Username:   identity.Username,
		FirstName:  identity.FirstName,
	})
	if err != nil {
		return nil, err
	}

	return identity, nil
}

// Outcome returns a short, bounded label for err suitable for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, initdata.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, initdata.ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, initdata.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, initdata.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, initdata.ErrCredentialExpired):
		return "expired"
	case errors.Is(err, initdata.ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, initdata.ErrMalformedIdentity):
		return "malformed_identity"
	case errors.Is(err, store.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// HTTPStatus maps an authentication or storage error to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, initdata.ErrMalformedCredential),
		errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, initdata.ErrMissingSignature),
		errors.Is(err, initdata.ErrInvalidSignature),
		errors.Is(err, initdata.ErrInvalidTimestamp),
		errors.Is(err, initdata.ErrCredentialExpired),
		errors.Is(err, initdata.ErrMissingIdentity),
		errors.Is(err, initdata.ErrMalformedIdentity):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing text for err. Internal errors collapse to a
// generic message so driver details never reach the response body. Every verification
// failure shares one message; the failing stage is only logged and counted.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusServiceUnavailable:
		return "storage unavailable"
	case http.StatusForbidden:
		return "verification failed"
	default:
		return err.Error()
	}
}
