// Package apperr is the error taxonomy shared by the variant engine and its
// transports. Every error a caller can recover from carries a Kind.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
)

type Kind string

const (
	Validation   Kind = "validation"
	Collision    Kind = "collision"
	Collaborator Kind = "collaborator"
	NotFound     Kind = "not_found"
	Forbidden    Kind = "forbidden"
	Internal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string            // collaborator operation that failed, if any
	Message string            // safe to show to the user
	Fields  map[string]string // field -> message for validation failures
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationErr(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

func CollisionErr(code string) *Error {
	return &Error{
		Kind:    Collision,
		Message: fmt.Sprintf("code %q is already used by another variant of this product", code),
		Fields:  map[string]string{"code": "already in use"},
	}
}

// CollaboratorErr wraps a failure from storage or another external
// collaborator. The original error is kept verbatim.
func CollaboratorErr(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal {
		return ae
	}
	return &Error{Kind: Collaborator, Op: op, Message: err.Error(), Err: err}
}

func NotFoundErr(message string) *Error {
	return &Error{Kind: NotFound, Message: message}
}

func ForbiddenErr(message string) *Error {
	return &Error{Kind: Forbidden, Message: message}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Internal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

func IsValidation(err error) bool   { return KindOf(err) == Validation }
func IsCollision(err error) bool    { return KindOf(err) == Collision }
func IsCollaborator(err error) bool { return KindOf(err) == Collaborator }

// Code maps err onto a gRPC status code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	switch KindOf(err) {
	case Validation:
		return codes.InvalidArgument
	case Collision:
		return codes.AlreadyExists
	case Collaborator:
		return codes.Unavailable
	case NotFound:
		return codes.NotFound
	case Forbidden:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// PublicMessage returns a message that is safe to show to the user.
func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Message != "" {
		return ae.Message
	}
	return "unexpected error"
}

// FromValidator turns validator.ValidationErrors into a validation error
// keyed by lower-cased field name. Other errors become Internal.
func FromValidator(message string, err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &Error{Kind: Internal, Message: message, Err: err}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[strings.ToLower(fe.Field())] = tagMessage(fe.Tag(), fe.Param())
	}
	return ValidationErr(message, fields)
}

func tagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required"
	case "max":
		return "at most " + param + " characters"
	default:
		return "invalid"
	}
}
