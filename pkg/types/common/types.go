// Package common holds the response envelope and the small value types the
// HTTP API, the Go client and the job results share.
package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxPageSize bounds Pagination.PageSize.
const MaxPageSize = 500

// Timestamp marshals as RFC 3339 with nanoseconds, always in UTC.
type Timestamp time.Time

// NewTimestamp returns the current UTC time.
func NewTimestamp() Timestamp {
	return Timestamp(time.Now().UTC())
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 with or without fractional seconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// ErrorDetail is the error block of a failed response or batch item.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Pagination selects a page of a listing.  Total is filled in on the way
// out.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Validate checks that Page is 1-based and PageSize is in 1..MaxPageSize.
func (p Pagination) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// Offset is the number of rows before the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// HasNext reports whether rows remain after this page.
func (p Pagination) HasNext() bool {
	return int64(p.Page*p.PageSize) < p.Total
}

// APIResponse is the envelope of every API response.
type APIResponse[T any] struct {
	Success    bool         `json:"success"`
	Data       T            `json:"data,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	RequestID  string       `json:"request_id"`
	Timestamp  Timestamp    `json:"timestamp"`
}

func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{Success: true, Data: data, Timestamp: NewTimestamp()}
}

func NewErrorResponse(code, message string) APIResponse[any] {
	return APIResponse[any]{
		Error:     &ErrorDetail{Code: code, Message: message},
		Timestamp: NewTimestamp(),
	}
}

// NewPaginatedResponse wraps one page of a listing.
func NewPaginatedResponse[T any](data T, page Pagination) APIResponse[T] {
	resp := NewSuccessResponse(data)
	resp.Pagination = &page
	return resp
}

// BatchError is one failed item of a batch request.
type BatchError struct {
	Index int         `json:"index"`
	Input string      `json:"input,omitempty"`
	Error ErrorDetail `json:"error"`
}

// BatchResponse splits a batch into its successful and failed items.
type BatchResponse[T any] struct {
	Succeeded      []T          `json:"succeeded"`
	Failed         []BatchError `json:"failed"`
	TotalProcessed int          `json:"total_processed"`
}

// HealthStatus is the state of one dependency.
type HealthStatus string

const (
	HealthUp   HealthStatus = "up"
	HealthDown HealthStatus = "down"
)

// ComponentHealth reports one readiness check.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}

//Personal.AI order the ending
