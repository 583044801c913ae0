package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret")
	token, err := v.Sign("u1", "alice@nest.com", time.Hour)
	require.NoError(t, err)

	uid, err := v.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = NewJWTVerifier("other").VerifyToken(context.Background(), token)
	assert.Error(t, err)

	expired, err := v.Sign("u1", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.VerifyToken(context.Background(), expired)
	assert.Error(t, err)
}

func TestJWTVerifierRejectsMissingSubjectAndOtherAlgorithms(t *testing.T) {
	v := NewJWTVerifier("secret")
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.VerifyToken(context.Background(), noSub)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JwtCustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.VerifyToken(context.Background(), none)
	assert.Error(t, err)
}

type fakeIDTokens map[string]string

func (f fakeIDTokens) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := f[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid}, nil
}

func TestVerifiersAcceptAnyMember(t *testing.T) {
	jwtV := NewJWTVerifier("secret")
	vs := Verifiers{jwtV, NewFirebaseVerifier(fakeIDTokens{"fb-token": "fb-user"})}

	uid, err := vs.VerifyToken(context.Background(), "fb-token")
	require.NoError(t, err)
	assert.Equal(t, "fb-user", uid)

	local, err := jwtV.Sign("local-user", "", time.Hour)
	require.NoError(t, err)
	uid, err = vs.VerifyToken(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "local-user", uid)

	_, err = vs.VerifyToken(context.Background(), "garbage")
	assert.Error(t, err)
	_, err = Verifiers{}.VerifyToken(context.Background(), "garbage")
	assert.Error(t, err)
}

func serveWith(mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = ViewerID(c)
		return c.NoContent(http.StatusNoContent)
	}, mw)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAndOptionalAuth(t *testing.T) {
	v := NewFirebaseVerifier(fakeIDTokens{"good": "u1"})

	tests := []struct {
		name       string
		mw         echo.MiddlewareFunc
		header     string
		wantStatus int
		wantViewer string
	}{
		{"required ok", RequireAuth(v), "Bearer good", http.StatusNoContent, "u1"},
		{"required lowercase scheme", RequireAuth(v), "bearer good", http.StatusNoContent, "u1"},
		{"required missing", RequireAuth(v), "", http.StatusUnauthorized, ""},
		{"required wrong scheme", RequireAuth(v), "Basic good", http.StatusUnauthorized, ""},
		{"required bad token", RequireAuth(v), "Bearer bad", http.StatusUnauthorized, ""},
		{"optional anonymous", OptionalAuth(v), "", http.StatusNoContent, ""},
		{"optional ok", OptionalAuth(v), "Bearer good", http.StatusNoContent, "u1"},
		{"optional bad token", OptionalAuth(v), "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, viewer := serveWith(tt.mw, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantViewer, viewer)
		})
	}
}
