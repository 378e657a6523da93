package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret")
	tok, err := v.Sign(Identity{StudentID: "alice", DisplayName: "Alice"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{StudentID: "alice", DisplayName: "Alice"}, id)
}

func TestVerify_LegacyIDClaim(t *testing.T) {
	claims := jwt.MapClaims{"id": "bob", "name": "Bob", "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	id, err := NewJWTVerifier("secret").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.StudentID)
	assert.Equal(t, "Bob", id.Name())
}

func TestVerify_Rejects(t *testing.T) {
	v := NewJWTVerifier("secret")
	other, err := NewJWTVerifier("other").Sign(Identity{StudentID: "x"}, time.Hour)
	require.NoError(t, err)
	expired, err := v.Sign(Identity{StudentID: "x"}, -time.Minute)
	require.NoError(t, err)
	anonymous, err := v.Sign(Identity{}, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"wrong secret":  other,
		"expired":       expired,
		"no student id": anonymous,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.True(t, errors.Is(err, ErrUnauthenticated), "err = %v", err)
		})
	}
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{StudentID: "s"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "s", id.StudentID)
}

func TestLocal(t *testing.T) {
	id := Local("s1", "Sam")
	assert.Equal(t, Identity{StudentID: "s1", DisplayName: "Sam"}, id)
	assert.NotEmpty(t, Local("", "").StudentID)
}
