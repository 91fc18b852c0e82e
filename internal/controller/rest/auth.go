package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/service"
)

// Claims - JWT claims. Subject - внешний идентификатор пользователя.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// UserIDFromContext возвращает ID аутентифицированного пользователя
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// WithUserID кладёт ID пользователя в контекст
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// Authenticator проверяет Bearer токен и сопоставляет внешний идентификатор
// внутреннему ID пользователя
type Authenticator struct {
	secret []byte
	users  *service.UserService
	logger *zap.Logger
	cache  sync.Map // external id -> user id
}

func NewAuthenticator(secret []byte, users *service.UserService, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: secret,
		users:  users,
		logger: logger,
	}
}

// Middleware требует валидный токен, иначе отвечает 401
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "invalid token format")
			return
		}

		claims, err := ParseToken(a.secret, tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := a.resolve(r.Context(), claims)
		if err != nil {
			a.logger.Error("Failed to resolve user", zap.String("subject", claims.Subject), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (a *Authenticator) resolve(ctx context.Context, claims *Claims) (int64, error) {
	if id, ok := a.cache.Load(claims.Subject); ok {
		return id.(int64), nil
	}

	user, err := a.users.EnsureUser(ctx, claims.Subject, claims.Name, claims.Email)
	if err != nil {
		return 0, err
	}
	a.cache.Store(claims.Subject, user.ID)
	return user.ID, nil
}

// ParseToken проверяет подпись HS256 и срок действия токена
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// IssueToken подписывает токен для subject. ttl <= 0 - без срока действия.
func IssueToken(secret []byte, id, subject, name, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "slotswap",
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
