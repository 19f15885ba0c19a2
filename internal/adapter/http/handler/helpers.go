package handler

import (
	"strconv"

	"group-vault/internal/adapter/http/dto"
	"group-vault/internal/adapter/http/middleware"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// callerID returns the authenticated user, writing a 401 when missing.
func callerID(c *gin.Context) (string, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return "", false
	}
	return id, true
}

// uuidParam parses a path parameter, writing a 400 on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and sanitizes the request body, writing a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// pageQuery reads page and page_size, clamped the same way the services clamp them.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return ports.NormalizePage(page, pageSize)
}

func amount(c *gin.Context, s string) (decimal.Decimal, bool) {
	d, err := dto.ParseDecimal(s)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return decimal.Zero, false
	}
	return d, true
}

func optionalAmount(c *gin.Context, field string, s *string) (*decimal.Decimal, bool) {
	d, err := dto.ParseOptionalDecimal(s)
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+field))
		return nil, false
	}
	return d, true
}
