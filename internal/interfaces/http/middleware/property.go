package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Keys used to store property information in gin.Context
const (
	PropertyIDKey     = "property_id"
	PropertyCodeKey   = "property_code"
	PropertyHeaderKey = "X-Property-ID"
)

// PropertyInfo holds the extracted property information
type PropertyInfo struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// PropertyValidator defines the interface for validating a property
type PropertyValidator interface {
	ValidateProperty(propertyID string) (*PropertyInfo, error)
}

// PropertyMiddlewareConfig holds configuration for property middleware
type PropertyMiddlewareConfig struct {
	// HeaderEnabled enables X-Property-ID header extraction
	HeaderEnabled bool
	// JWTEnabled enables JWT claim extraction (requires JWT middleware to run first)
	JWTEnabled bool
	// SkipPaths are paths that don't require property context (e.g., health check)
	SkipPaths []string
	// Required determines if property context is mandatory
	Required bool
	// Validator is an optional validator to check if the property exists and is active
	Validator PropertyValidator
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultPropertyConfig returns default property middleware configuration
func DefaultPropertyConfig() PropertyMiddlewareConfig {
	return PropertyMiddlewareConfig{
		HeaderEnabled: true,
		JWTEnabled:    true,
		SkipPaths:     []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health", "/api/v1/webhooks"},
		Required:      true,
		Validator:     nil,
		Logger:        nil,
	}
}

// PropertyMiddleware extracts the property scope from the request.
// Extraction order: JWT claims > X-Property-ID header
func PropertyMiddleware() gin.HandlerFunc {
	return PropertyMiddlewareWithConfig(DefaultPropertyConfig())
}

// PropertyMiddlewareWithConfig returns property middleware with custom configuration
func PropertyMiddlewareWithConfig(cfg PropertyMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if path should be skipped
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		var propertyID string
		var extractionMethod string

		// Priority 1: JWT claims (if JWT middleware has already run)
		if cfg.JWTEnabled {
			if jwtPropertyID, exists := c.Get(JWTPropertyIDKey); exists {
				if pid, ok := jwtPropertyID.(string); ok && pid != "" {
					propertyID = pid
					extractionMethod = "jwt"
				}
			}
		}

		// Priority 2: X-Property-ID header
		if propertyID == "" && cfg.HeaderEnabled {
			if headerPropertyID := c.GetHeader(PropertyHeaderKey); headerPropertyID != "" {
				propertyID = headerPropertyID
				extractionMethod = "header"
			}
		}

		// Validate property ID format if present
		if propertyID != "" {
			if err := validatePropertyIDFormat(propertyID); err != nil {
				respondUnauthorized(c, "Invalid property ID format")
				return
			}
		}

		// Check if property scope is required
		if propertyID == "" && cfg.Required {
			respondUnauthorized(c, "Property identification required")
			return
		}

		// Optional: Validate property exists and is active
		var propertyInfo *PropertyInfo
		if propertyID != "" && cfg.Validator != nil {
			var err error
			propertyInfo, err = cfg.Validator.ValidateProperty(propertyID)
			if err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Property validation failed",
					zap.String("property_id", propertyID),
					zap.Error(err),
				)
				respondUnauthorized(c, "Invalid or inactive property")
				return
			}
		}

		// Set property information in context
		if propertyID != "" {
			// Set in gin context for easy access in handlers
			c.Set(PropertyIDKey, propertyID)
			if propertyInfo != nil {
				c.Set(PropertyCodeKey, propertyInfo.Code)
			}

			// Set in request context for service layer access
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithPropertyID(ctx, log, propertyID)
			c.Request = c.Request.WithContext(ctx)

			// Log extraction method for debugging
			if cfg.Logger != nil {
				cfg.Logger.Debug("Property identified",
					zap.String("property_id", propertyID),
					zap.String("method", extractionMethod),
				)
			}
		}

		c.Next()
	}
}

// validatePropertyIDFormat validates that the property ID is a valid UUID
func validatePropertyIDFormat(propertyID string) error {
	_, err := uuid.Parse(propertyID)
	return err
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetPropertyID retrieves the property ID from gin.Context
func GetPropertyID(c *gin.Context) string {
	if propertyID, exists := c.Get(PropertyIDKey); exists {
		if pid, ok := propertyID.(string); ok {
			return pid
		}
	}
	return ""
}

// GetPropertyUUID retrieves the property ID as UUID from gin.Context
func GetPropertyUUID(c *gin.Context) (uuid.UUID, error) {
	propertyID := GetPropertyID(c)
	if propertyID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(propertyID)
}

// GetPropertyCode retrieves the property code from gin.Context
func GetPropertyCode(c *gin.Context) string {
	if propertyCode, exists := c.Get(PropertyCodeKey); exists {
		if code, ok := propertyCode.(string); ok {
			return code
		}
	}
	return ""
}

// MustGetPropertyID retrieves the property ID from gin.Context or panics if not found
// Use this only in handlers where the property scope is guaranteed to exist
func MustGetPropertyID(c *gin.Context) string {
	propertyID := GetPropertyID(c)
	if propertyID == "" {
		panic("property_id not found in context")
	}
	return propertyID
}

// MustGetPropertyUUID retrieves the property ID as UUID or panics if not found
func MustGetPropertyUUID(c *gin.Context) uuid.UUID {
	propertyUUID, err := GetPropertyUUID(c)
	if err != nil || propertyUUID == uuid.Nil {
		panic("valid property_id not found in context")
	}
	return propertyUUID
}

// OptionalPropertyMiddleware creates middleware that doesn't require property scope
func OptionalPropertyMiddleware() gin.HandlerFunc {
	cfg := DefaultPropertyConfig()
	cfg.Required = false
	return PropertyMiddlewareWithConfig(cfg)
}
