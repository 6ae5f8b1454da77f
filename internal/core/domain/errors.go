package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrStockReduction      = errors.New("stock reduction failed")
	ErrCarrierAuth         = errors.New("carrier authentication failed")
	ErrDispatch            = errors.New("shipment dispatch failed")
	ErrCarrierUnauthorized = errors.New("carrier rejected credentials")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrDispatchInProgress  = errors.New("dispatch already in progress")
)

// ValidationError rejects malformed caller input before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type Shortfall struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError lists every item the pre-check found short.
type InsufficientStockError struct {
	Items []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, s := range e.Items {
		label := s.ProductName
		if label == "" {
			label = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d - Insufficient stock", label, s.Requested, s.Available))
	}
	return "stock validation failed: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StockReductionError means the transactional commit was abandoned; nothing
// from the batch was persisted.
type StockReductionError struct {
	ProductID   string
	ProductName string
	Reason      string
}

func (e *StockReductionError) Error() string {
	label := e.ProductName
	if label == "" {
		label = e.ProductID
	}
	return fmt.Sprintf("%s: %s", e.Reason, label)
}

func (e *StockReductionError) Is(target error) bool { return target == ErrStockReduction }

type CarrierAuthError struct {
	Err error
}

func (e *CarrierAuthError) Error() string {
	return fmt.Sprintf("carrier authentication failed: %v", e.Err)
}

func (e *CarrierAuthError) Is(target error) bool { return target == ErrCarrierAuth }

func (e *CarrierAuthError) Unwrap() error { return e.Err }

// DispatchError covers both carrier rejections and transport failures. The
// order stays confirmed and the dispatch step can be retried on its own.
type DispatchError struct {
	Op         string
	OrderID    string
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	b.WriteString("shipment ")
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.OrderID != "" {
		b.WriteString(" for order ")
		b.WriteString(e.OrderID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }

func (e *DispatchError) Unwrap() error { return e.Err }

// CarrierResponseError is a non-2xx answer, or a 2xx answer flagged as a
// business failure, from the carrier API.
type CarrierResponseError struct {
	StatusCode int
	Message    string
}

func (e *CarrierResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("carrier responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("carrier responded with status %d: %s", e.StatusCode, e.Message)
}

func (e *CarrierResponseError) Is(target error) bool {
	return target == ErrCarrierUnauthorized && e.StatusCode == 401
}
