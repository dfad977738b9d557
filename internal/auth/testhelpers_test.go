package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aa-tracker/aa-tracker/internal/initdata"
	"github.com/aa-tracker/aa-tracker/internal/store"
)

const testBotToken = "123456:TEST-bot-token"

var testNow = time.Unix(1_700_000_000, 0)

// signedInitData returns raw init data for user JSON signed with testBotToken at authDate.
func signedInitData(t *testing.T, userJSON string, authDate time.Time) string {
	t.Helper()
	fields := initdata.Fields{
		initdata.FieldAuthDate: strconv.FormatInt(authDate.Unix(), 10),
		"query_id":             "AAHdF6IQAAAAAN0XohDhrOrc",
	}
	if userJSON != "" {
		fields[initdata.FieldUser] = userJSON
	}
	fields[initdata.FieldHash] = initdata.Sign(fields, testBotToken)
	return initdata.Encode(fields)
}

func newTestGateway(t *testing.T, users store.UserStore) *Gateway {
	t.Helper()
	v, err := initdata.NewVerifier(testBotToken, initdata.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return NewGateway(v, users, GatewayOptions{})
}

// recordingUsers counts upserts and can be told to fail.
type recordingUsers struct {
	upserts []*store.User
	err     error
}

func (r *recordingUsers) UpsertUser(ctx context.Context, u *store.User) error {
	if r.err != nil {
		return r.err
	}
	c := *u
	r.upserts = append(r.upserts, &c)
	return nil
}

func (r *recordingUsers) GetUser(ctx context.Context, id int64) (*store.User, error) {
	for _, u := range r.upserts {
		if u.TelegramID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}
