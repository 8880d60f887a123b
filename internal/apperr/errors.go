// Package apperr holds the error taxonomy shared by the marketplace services.
// Business failures carry a Kind; anything without one is treated as Internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindMismatch          Kind = "seller_mismatch"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindEmptyOrder        Kind = "empty_order"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidStatus     Kind = "invalid_status"
	KindInvalidTransition Kind = "invalid_transition"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error. A nil err yields nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// WithDetails returns a copy of e carrying details for the response body.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StockShortage is the detail payload of an insufficient stock failure.
type StockShortage struct {
	ListingID int64 `json:"listing_id"`
	Available int   `json:"available"`
	Requested int   `json:"requested"`
}

func InsufficientStock(listingID int64, available, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for listing %d: available %d, requested %d", listingID, available, requested),
		Details: StockShortage{ListingID: listingID, Available: available, Requested: requested},
	}
}

// Shortage extracts the stock shortage carried by err, if any.
func Shortage(err error) (StockShortage, bool) {
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != KindInsufficientStock {
		return StockShortage{}, false
	}
	s, ok := ae.Details.(StockShortage)
	return s, ok
}
