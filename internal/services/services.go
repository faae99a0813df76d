// Package services holds the blog's use cases. Every write takes the acting
// user as an explicit argument.
package services

import (
	"errors"

	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/validators"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Validator checks a request struct and returns validators.FieldErrors on failure.
type Validator interface {
	Validate(i interface{}) error
}

func mapNotFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// collect merges a Validate result into fe. Errors that are not field errors are returned.
func collect(fe validators.FieldErrors, err error) error {
	if err == nil {
		return nil
	}
	var verrs validators.FieldErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for field, msgs := range verrs {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
	return nil
}
