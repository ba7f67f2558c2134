package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Error is the JSON error shape of the API. The status code travels out of
// band, the body only ever carries the message.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

func ErrMissingQuery() Error {
	return NewError(fiber.StatusBadRequest, "Missing query parameter 'q'")
}

func ErrInternal() Error {
	return NewError(fiber.StatusInternalServerError, "Internal server error")
}

func ErrBadRequest(msg string) Error {
	return NewError(fiber.StatusBadRequest, msg)
}

// ErrorHandler maps errors to JSON responses. Anything that is not a typed
// API error is logged and flattened to a generic 500, internal detail never
// reaches the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(Error); ok {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	log.Printf("[API] request failed: %v", err)
	internal := ErrInternal()
	return c.Status(internal.Code).JSON(internal)
}
