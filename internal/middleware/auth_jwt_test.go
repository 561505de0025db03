package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims TokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthJWT(t *testing.T) {
	inAnHour := jwt.NewNumericDate(time.Now().Add(time.Hour))
	claims := func(sub string, exp *jwt.NumericDate, aud ...string) TokenClaims {
		return TokenClaims{Locale: "de", RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: exp, Audience: aud}}
	}

	valid := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("u1", inAnHour, "offersync"))
	multiAud := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("u1", inAnHour, "billing", "offersync"))
	noExp := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("u1", nil, "offersync"))
	expired := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("u1", jwt.NewNumericDate(time.Now().Add(-time.Minute)), "offersync"))
	wrongAud := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("u1", inAnHour, "other"))
	forged := signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), claims("u1", inAnHour, "offersync"))
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte("secret"), claims("u1", inAnHour, "offersync"))
	unsigned := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims("u1", inAnHour, "offersync"))
	noSub := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims("", inAnHour, "offersync"))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"audience list", "Bearer " + multiAud, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"no expiry", "Bearer " + noExp, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong audience", "Bearer " + wrongAud, http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"other hmac alg", "Bearer " + wrongAlg, http.StatusUnauthorized},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSub, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var userID, locale string
			handler := AuthJWT("secret", "offersync")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userID = UserIDFromContext(r.Context())
				locale = LocaleFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && (userID != "u1" || locale != "de") {
				t.Fatalf("context user=%q locale=%q", userID, locale)
			}
		})
	}
}
