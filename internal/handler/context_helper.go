package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/middleware"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

// requireClaims returns the authenticated actor stored by the JWT
// middleware, writing the 401 itself when the claims are missing or
// malformed. Callers just bail on nil.
func requireClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}
