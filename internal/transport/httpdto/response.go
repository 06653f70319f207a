package httpdto

import (
	medishare_errors "medishare/pkg/errors"
)

type Response[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the {kind, message} object returned on failure.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(kind medishare_errors.Kind, message, field string) Response[any] {
	return Response[any]{
		Success: false,
		Error: &ErrorBody{
			Kind:    string(kind),
			Message: message,
			Field:   field,
		},
	}
}

// FromError builds the failure envelope. Internal errors get a generic message.
func FromError(err error) Response[any] {
	return NewErrorResponse(
		medishare_errors.KindOf(err),
		medishare_errors.PublicMessage(err),
		medishare_errors.FieldOf(err),
	)
}
