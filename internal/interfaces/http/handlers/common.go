// Package handlers implements the gin handlers of the codec HTTP API.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
)

// respond writes data inside the standard success envelope.
func respond[T any](c *gin.Context, status int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = logging.RequestIDFromContext(c.Request.Context())
	c.JSON(status, resp)
}

// respondPage writes a page of items with its pagination block.
func respondPage[T any](c *gin.Context, status int, items T, page common.Pagination) {
	resp := common.NewPaginatedResponse(items, page)
	resp.RequestID = logging.RequestIDFromContext(c.Request.Context())
	c.JSON(status, resp)
}

// parsePagination reads page and page_size, falling back to the first page
// of defaultPageSize for missing or malformed values.
func parsePagination(c *gin.Context) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: defaultPageSize}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= common.MaxPageSize {
		p.PageSize = v
	}
	return p
}

const defaultPageSize = 20

// respondError maps err to its HTTP status.  Server-side failures are
// reported with the code's default message so driver details never leak.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	resp := common.NewErrorResponse(string(code), errors.DefaultMessageForCode(code))
	if ae, ok := errors.AsAppError(err); ok && errors.IsClientError(code) {
		resp.Error.Message = ae.Message
		resp.Error.Detail = ae.Detail
	}
	resp.RequestID = logging.RequestIDFromContext(c.Request.Context())
	c.AbortWithStatusJSON(status, resp)
}

// errorDetail renders err for per-item batch failures.
func errorDetail(err error) common.ErrorDetail {
	code := errors.GetCode(err)
	d := common.ErrorDetail{Code: string(code), Message: err.Error()}
	if ae, ok := errors.AsAppError(err); ok {
		d.Message = ae.Message
		d.Detail = ae.Detail
	}
	return d
}

// badRequest wraps a request validation failure.
func badRequest(err error) error {
	return errors.New(errors.ErrCodeBadRequest, "invalid request").WithDetail(err.Error())
}

//Personal.AI order the ending
