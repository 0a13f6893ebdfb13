package services

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsignedToken builds a token with a raw JSON payload and a dummy header and signature.
func unsignedToken(payload string) string {
	return "a." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".c"
}

func TestIsUsable(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  bool
	}{
		{
			name:  "expires in an hour",
			token: func(t *testing.T) string { return tokenExpiringIn(t, time.Hour) },
			want:  true,
		},
		{
			name:  "expires in ten seconds",
			token: func(t *testing.T) string { return tokenExpiringIn(t, 10*time.Second) },
			want:  false,
		},
		{
			name:  "exactly at the buffer",
			token: func(t *testing.T) string { return tokenExpiringIn(t, UsableBuffer) },
			want:  false,
		},
		{
			name:  "one second past the buffer",
			token: func(t *testing.T) string { return tokenExpiringIn(t, UsableBuffer+time.Second) },
			want:  true,
		},
		{
			name:  "already expired",
			token: func(t *testing.T) string { return tokenExpiringIn(t, -time.Minute) },
			want:  false,
		},
		{
			name:  "unverifiable header with future exp",
			token: func(*testing.T) string { return unsignedToken(`{"exp":1740834000}`) },
			want:  true,
		},
		{
			name:  "no exp claim",
			token: func(*testing.T) string { return unsignedToken(`{"sub":"user-1"}`) },
			want:  true,
		},
		{
			name:  "not a jwt",
			token: func(*testing.T) string { return "not-a-jwt" },
			want:  false,
		},
		{
			name:  "empty",
			token: func(*testing.T) string { return "" },
			want:  false,
		},
		{
			name:  "empty segment",
			token: func(*testing.T) string { return "a..c" },
			want:  false,
		},
		{
			name:  "payload is not json",
			token: func(*testing.T) string { return "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c" },
			want:  false,
		},
		{
			name:  "exp is not a number",
			token: func(*testing.T) string { return unsignedToken(`{"exp":"soon"}`) },
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUsable(tt.token(t), fixedNow))
		})
	}
}

func TestIsUsable_RelativeToNow(t *testing.T) {
	token := unsignedToken(`{"exp":1000}`)

	assert.True(t, IsUsable(token, time.Unix(1000-3600, 0)))
	assert.False(t, IsUsable(token, time.Unix(1000-10, 0)))
}

func TestIsUsable_PaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"exp":1000,"sub":"u"}`))
	require.True(t, strings.HasSuffix(payload, "="))
	token := "a." + payload + ".c"

	assert.True(t, IsUsable(token, time.Unix(1000-3600, 0)))
	assert.False(t, IsUsable(token, time.Unix(1000-10, 0)))

	exp, ok := TokenExpiry(token)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), exp.Unix())
}

func TestTokenExpiry(t *testing.T) {
	exp, ok := TokenExpiry(tokenExpiringIn(t, time.Hour))
	assert.True(t, ok)
	assert.Equal(t, fixedNow.Add(time.Hour).Unix(), exp.Unix())

	_, ok = TokenExpiry(unsignedToken(`{"sub":"user-1"}`))
	assert.False(t, ok)

	_, ok = TokenExpiry("not-a-jwt")
	assert.False(t, ok)
}
