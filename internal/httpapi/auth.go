package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	principalContextKey = "auth_principal"

	// RoleUser may bet and manage their own wallet; RoleOperator additionally
	// manages events and withdrawal decisions.
	RoleUser     = "user"
	RoleOperator = "operator"
)

// Principal is the authenticated caller extracted from the bearer token.
type Principal struct {
	UserID string
	Role   string
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (server *Server) authMiddleware() gin.HandlerFunc {
	keyFn := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(server.config.SigningKey), nil
	}
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		rawToken, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(rawToken) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(rawToken, claims, keyFn,
			jwt.WithIssuer(server.config.Issuer),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid || claims.Subject == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid bearer token"))
			return
		}
		role := claims.Role
		if role == "" {
			role = RoleUser
		}
		ctx.Set(principalContextKey, Principal{UserID: claims.Subject, Role: role})
		ctx.Next()
	}
}

func requireOperator() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if getPrincipal(ctx).Role != RoleOperator {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "operator role required"))
			return
		}
		ctx.Next()
	}
}

func getPrincipal(ctx *gin.Context) Principal {
	value, ok := ctx.Get(principalContextKey)
	if !ok {
		return Principal{}
	}
	principal, _ := value.(Principal)
	return principal
}
