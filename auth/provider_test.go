package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	uid, err := NewStaticProvider(" user-1 ").UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	_, err = NewStaticProvider("").UserID(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStaticProvider("user-1").UserID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
