package orders

import (
	"strings"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
)

// strictNext lists the moves a seller may make when transitions are strict.
// PENDING is initial only, CANCELED is terminal.
var strictNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCanceled: true},
	StatusConfirmed: {StatusCanceled: true},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	return strictNext[from][to]
}

// ParseTarget validates a status a seller asked for. Only CONFIRMED and
// CANCELED can be set; matching is case-insensitive.
func ParseTarget(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusConfirmed, StatusCanceled:
		return st, nil
	}
	return "", apperr.New(apperr.KindInvalidStatus, "status %q cannot be set, use CONFIRMED or CANCELED", s)
}
