package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func staticSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
}

func TestCurrentServicePrincipal(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"oid":   "sp-object-id",
		"tid":   "tenant-id",
		"appid": "app-client-id",
	})

	p, err := Current(staticSource(tok))
	require.NoError(t, err)
	require.Equal(t, "sp-object-id", p.ObjectID)
	require.Equal(t, "tenant-id", p.TenantID)
	require.Equal(t, "app-client-id", p.Name, "service principals are named by appid")
}

func TestCurrentUserNameWins(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"oid":   "user-object-id",
		"tid":   "tenant-id",
		"name":  "Ada Operator",
		"appid": "app-client-id",
	})

	p, err := Current(staticSource(tok))
	require.NoError(t, err)
	require.Equal(t, "Ada Operator", p.Name)
}

func TestCurrentMissingObjectID(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"tid": "tenant-id"})

	_, err := Current(staticSource(tok))
	require.Error(t, err)
}

func TestCurrentNotAToken(t *testing.T) {
	_, err := Current(staticSource("not-a-jwt"))
	require.Error(t, err)
}
