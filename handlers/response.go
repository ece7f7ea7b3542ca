package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"catalog-server/database"
	"catalog-server/logger"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NotFoundError reports a missing entity by name.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ConflictError rejects an operation the current data does not allow,
// such as deleting a category that still has brands.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// missing turns a repository miss into a NotFoundError for entity.
func missing(err error, entity string) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: entity}
	}
	return err
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// fail writes the error envelope. message is used for unhandled faults;
// not found, validation and conflict errors carry their own text.
func (h *Handler) fail(c *gin.Context, message string, err error) {
	var (
		notFound   *NotFoundError
		invalid    *ValidationError
		conflict   *ConflictError
		constraint *database.ConstraintError
	)

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, Envelope{Message: "Validation failed", Errors: invalid.Fields})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, Envelope{Message: notFound.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, Envelope{Message: "Record not found"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusUnprocessableEntity, Envelope{Message: conflict.Message})
	case errors.As(err, &constraint):
		c.JSON(http.StatusUnprocessableEntity, constraintEnvelope(constraint))
	default:
		logger.FromContext(c.Request.Context(), h.log).
			WithError(err).
			WithField("path", c.Request.URL.Path).
			Error(message)

		env := Envelope{Message: message}
		if h.opts.ExposeErrors {
			env.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, env)
	}
}

func constraintEnvelope(err *database.ConstraintError) Envelope {
	field := err.Field
	if field == "" {
		field = "id"
	}
	label := fieldLabel(field)

	if err.Kind == database.UniqueViolation {
		return Envelope{
			Message: "Validation failed",
			Errors:  map[string][]string{field: {fmt.Sprintf("The %s has already been taken.", label)}},
		}
	}
	if field == "id" {
		return Envelope{Message: "The record is still referenced by other records."}
	}
	return Envelope{
		Message: "Validation failed",
		Errors:  map[string][]string{field: {fmt.Sprintf("The selected %s is invalid.", label)}},
	}
}

// pathID parses a numeric path parameter. Anything that is not a
// positive integer cannot match a row and is reported as not found.
func pathID(c *gin.Context, param, entity string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, &NotFoundError{Entity: entity}
	}
	return uint(id), nil
}
