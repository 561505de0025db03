package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenerBuildsSession(t *testing.T) {
	load := func(ctx context.Context, userID string) (Auth, bool, error) {
		return Auth{AccessToken: "tok", RefreshToken: "ref"}, true, nil
	}
	opener := NewOpener(newFakeAdapter("tok"), load, nil, quietLogger(), nil)

	session, err := opener.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.Auth().UserID)

	offer, err := session.GetOffer(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", offer.ID)
}

func TestOpenerNotConnected(t *testing.T) {
	load := func(ctx context.Context, userID string) (Auth, bool, error) {
		return Auth{}, false, nil
	}
	_, err := NewOpener(newFakeAdapter("tok"), load, nil, quietLogger(), nil).Open(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestOpenerLoadError(t *testing.T) {
	boom := errors.New("db down")
	load := func(ctx context.Context, userID string) (Auth, bool, error) {
		return Auth{}, false, boom
	}
	_, err := NewOpener(newFakeAdapter("tok"), load, nil, quietLogger(), nil).Open(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
}
