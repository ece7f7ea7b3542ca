package database

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// PostgreSQL error classes we translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// ConstraintKind tells which integrity rule the database rejected.
type ConstraintKind int

const (
	UniqueViolation ConstraintKind = iota + 1
	ForeignKeyViolation
)

// ConstraintError wraps a unique or foreign key violation raised by
// PostgreSQL. Field is the offending column when the server reports it.
type ConstraintError struct {
	Kind       ConstraintKind
	Field      string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	switch e.Kind {
	case UniqueViolation:
		return fmt.Sprintf("duplicate value for %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("foreign key %s violated: %v", e.Constraint, e.Err)
	}
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

var detailKey = regexp.MustCompile(`Key \(([a-z_]+)\)`)

// translate maps driver and gorm errors onto the package errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return &ConstraintError{
			Kind:       UniqueViolation,
			Field:      keyColumn(pqErr.Detail),
			Constraint: pqErr.Constraint,
			Err:        err,
		}
	case codeForeignKeyViolation:
		return &ConstraintError{
			Kind:       ForeignKeyViolation,
			Field:      keyColumn(pqErr.Detail),
			Constraint: pqErr.Constraint,
			Err:        err,
		}
	}
	return err
}

// keyColumn pulls the column name out of a detail message such as
// `Key (name)=(Shoes) already exists.`
func keyColumn(detail string) string {
	m := detailKey.FindStringSubmatch(detail)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
