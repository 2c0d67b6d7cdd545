package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/handler"
	reservationService "github.com/clinicware/reservation-api/internal/service/reservation"
	"github.com/clinicware/reservation-api/pkg/auth"
)

const (
	contextUserID   = "userID"
	contextClinicID = "clinicID"
	contextRole     = "role"
)

type AuthMiddleware struct {
	tokens *auth.TokenManager
}

func NewAuthMiddleware(tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and sets the actor identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextClinicID, claims.ClinicID)
		c.Set(contextRole, claims.Role)
		c.Next()
	}
}

// RequireRole guards a route group to one surface (clinic or doctor).
func (m *AuthMiddleware) RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := c.Get(contextRole)
		if !ok || got.(auth.Role) != role {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext builds the workflow actor from the authenticated
// request context.
func ActorFromContext(c *gin.Context) reservationService.Actor {
	actor := reservationService.Actor{}
	if v, ok := c.Get(contextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.UserID = id
		}
	}
	if v, ok := c.Get(contextClinicID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ClinicID = id
		}
	}
	return actor
}
