package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/auth"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/httputil"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"

	// TokenCookie is the cookie the frontend stores its session token in.
	TokenCookie = "jwt"
)

type AuthConfig struct {
	CacheDuration   time.Duration
	CleanupInterval time.Duration
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		CacheDuration:   5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

type AuthMiddleware struct {
	tokens auth.TokenValidator
	users  repository.UserRepository
	cache  *cache.Cache
}

func NewAuthMiddleware(tokens auth.TokenValidator, users repository.UserRepository, config AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
		cache:  cache.New(config.CacheDuration, config.CleanupInterval),
	}
}

// Authenticate resolves the caller from a bearer token or the session
// cookie and stores the user id in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			httputil.AbortWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
			return
		}

		userID, err := m.tokens.ValidateToken(token)
		if err != nil {
			httputil.AbortWithStatus(c, http.StatusUnauthorized, "Unauthorized - Invalid token")
			return
		}

		user, err := m.lookup(c, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				httputil.AbortWithStatus(c, http.StatusUnauthorized, "Unauthorized - User not found")
				return
			}
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load user")
			httputil.AbortWithStatus(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

func (m *AuthMiddleware) lookup(c *gin.Context, id uuid.UUID) (*model.User, error) {
	key := id.String()
	if cached, found := m.cache.Get(key); found {
		return cached.(*model.User), nil
	}

	user, err := m.users.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, user, cache.DefaultExpiration)
	return user, nil
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	cookie, err := c.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return cookie
}

// UserID returns the authenticated caller. It is only valid behind
// Authenticate.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
