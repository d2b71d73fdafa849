package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestCountryFromTokenClaimOrder(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		claims jwt.MapClaims
		want   string
	}{
		{jwt.MapClaims{"country": "uz"}, "UZ"},
		{jwt.MapClaims{"countryCode": "kz"}, "KZ"},
		{jwt.MapClaims{"country_code": "ru"}, "RU"},
		{jwt.MapClaims{"cnt": "tj"}, "TJ"},
		{jwt.MapClaims{"country": "", "cnt": "kg"}, "KG"},
		{jwt.MapClaims{"country": 42}, ""},
		{jwt.MapClaims{"sub": "user"}, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CountryFromToken(signed(t, tc.claims), now), "%v", tc.claims)
	}
}

func TestCountryFromTokenExpired(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	expiredToken := signed(t, jwt.MapClaims{"country": "UZ", "exp": now.Add(-time.Minute).Unix()})
	validToken := signed(t, jwt.MapClaims{"country": "UZ", "exp": now.Add(time.Hour).Unix()})

	assert.Equal(t, "", CountryFromToken(expiredToken, now))
	assert.Equal(t, "UZ", CountryFromToken(validToken, now))
	assert.Equal(t, "UZ", CountryFromToken("Bearer "+validToken, now))

	exp, ok := ExpiresAt(validToken)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Hour).Unix(), exp.Unix())
}

func TestCountryFromTokenGarbage(t *testing.T) {
	assert.Equal(t, "", CountryFromToken("", time.Now()))
	assert.Equal(t, "", CountryFromToken("not.a.jwt", time.Now()))
	_, ok := ExpiresAt("opaque-token")
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------

func TestStaticCredentials(t *testing.T) {
	s := StaticCredentials{Token: "abc"}
	assert.Equal(t, "abc", s.CurrentCredential())
	assert.Nil(t, s.Changes())
}

func TestFileCredentialsReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0600))

	creds, err := NewFileCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "first", creds.CurrentCredential())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, creds.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))

	select {
	case <-creds.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	// A truncating write may be observed before the new content.
	assert.Eventually(t, func() bool { return creds.CurrentCredential() == "second" }, 5*time.Second, 10*time.Millisecond)
}

func TestFileCredentialsMissingFileIsEmpty(t *testing.T) {
	creds, err := NewFileCredentials(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, "", creds.CurrentCredential())
}
