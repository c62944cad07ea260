package order

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"Storefront/pkg/kit"
)

const roleAdmin = "admin"

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin accepts HS256 bearer tokens signed with secret whose role claim is admin.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, kit.KindUnauthorized, "missing token", nil)
				return
			}

			claims, err := parseAdminToken(raw, key)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, kit.KindUnauthorized, "invalid token", nil)
				return
			}
			if claims.Role != roleAdmin {
				kit.WriteError(w, r, http.StatusForbidden, kit.KindForbidden, "forbidden", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseAdminToken(raw string, key []byte) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("token not valid")
	}
	return claims, nil
}
