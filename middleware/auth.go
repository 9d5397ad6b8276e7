package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Staff roles issued by the accounts service.
const (
	RoleOrgAdmin     = "ORG_ADMIN"
	RoleTeacher      = "TEACHER"
	RoleProgramAdmin = "SAPA_ADMIN"
	RoleLogistics    = "LOGISTICS"
	RoleManufacturer = "MANUFACTURER"
)

type Claims struct {
	UserID         uint   `json:"user_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID uint   `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token signed with secret.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header is required"})
			c.Abort()
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		// Parse token
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if secret == "" {
				return nil, errors.New("JWT_SECRET is not configured")
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Get claims
		claims, ok := token.Claims.(*Claims)
		if !ok || claims.UserID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token claims"})
			c.Abort()
			return
		}

		// Set user info in context
		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("orgID", claims.OrganizationID)

		c.Next()
	}
}

// RequireRole checks if user has specific role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		if userRole == "" {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Role not found"})
			c.Abort()
			return
		}

		// Check if user's role is in allowed roles
		allowed := false
		for _, role := range roles {
			if userRole == role {
				allowed = true
				break
			}
		}

		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or nil when the request is anonymous.
func CurrentUserID(c *gin.Context) *uint {
	v, ok := c.Get("userID")
	if !ok {
		return nil
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return nil
	}
	return &id
}

// CanAccessOrganization reports whether the caller may read orgID. Program admins see every
// organization; other roles only the one in their token.
func CanAccessOrganization(c *gin.Context, orgID uint) bool {
	if c.GetString("role") == RoleProgramAdmin {
		return true
	}
	v, _ := c.Get("orgID")
	own, _ := v.(uint)
	return own != 0 && own == orgID
}

// CanFulfilOrganization is CanAccessOrganization widened to logistics staff, who handle
// shipments for every organization.
func CanFulfilOrganization(c *gin.Context, orgID uint) bool {
	return c.GetString("role") == RoleLogistics || CanAccessOrganization(c, orgID)
}
