package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxRole
	ctxPhone
)

// Principal is the authenticated caller extracted from the bearer token.
type Principal struct {
	UserID string
	Role   users.Role
	Phone  string
}

// Auth parses the Bearer JWT and injects the principal into the request
// context. Token issuance (login/registration) lives outside this
// service; only HS256 tokens signed with the shared secret are accepted.
type Auth struct {
	Secret []byte
}

func (a *Auth) parse(r *http.Request) (Principal, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return Principal{}, false
	}
	raw := strings.TrimPrefix(h, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.Secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, false
	}
	userID, _ := claims["user_id"].(string)
	roleStr, _ := claims["role"].(string)
	phone, _ := claims["phone"].(string)

	role := users.Role(roleStr)
	if userID == "" || !role.Valid() {
		return Principal{}, false
	}
	return Principal{UserID: userID, Role: role, Phone: phone}, true
}

// RequireAuth rejects unauthenticated requests with 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.parse(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, p.UserID)
		ctx = context.WithValue(ctx, ctxRole, p.Role)
		ctx = context.WithValue(ctx, ctxPhone, p.Phone)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers without the given role with 403. It must
// run inside RequireAuth.
func RequireRole(role users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFrom(r.Context()) != role {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserID).(string)
	return id
}

func RoleFrom(ctx context.Context) users.Role {
	role, _ := ctx.Value(ctxRole).(users.Role)
	return role
}

func PhoneFrom(ctx context.Context) string {
	phone, _ := ctx.Value(ctxPhone).(string)
	return phone
}
