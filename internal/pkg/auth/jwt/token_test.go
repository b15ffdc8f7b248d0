package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "01HZX", Nickname: "Anon_abc123"}, testSecret, time.Hour)
	require.NoError(t, err)

	payload, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "01HZX", payload.ID)
	require.Equal(t, "Anon_abc123", payload.Nickname)
	require.Equal(t, TokenIssuer, payload.Issuer)
	require.WithinDuration(t, time.Now().Add(time.Hour), payload.Expiry(), 5*time.Second)
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "01HZX"}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	require.Error(t, err)

	expired, err := GenerateToken(&Payload{ID: "01HZX"}, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	require.Error(t, err)

	anonymous, err := GenerateToken(&Payload{}, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(anonymous, testSecret)
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "01HZX"}, testSecret, time.Hour)
	require.NoError(t, err)

	var seen *Payload
	h := IdentityExtractorMiddleware(testSecret)(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
	})))

	// Header
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "01HZX", seen.ID)

	// Query parameter
	seen = nil
	r = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, "01HZX", seen.ID)

	// Missing
	seen = nil
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Nil(t, seen)
}
