package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError(nil, FieldError{Field: "email", Error: "enter a valid email address"}, FieldError{Field: "name", Error: "this field is required"})
	assert.Equal(t, "email: enter a valid email address; name: this field is required", err.Error())
	assert.True(t, IsValidation(errors.Wrap(err, "saving")))
	assert.False(t, IsValidation(errors.New("boom")))

	err = NewValidationError(errors.New("bad request"))
	assert.Equal(t, "bad request", err.Error())
}

func TestShutdownError(t *testing.T) {
	err := errors.Wrap(NewShutdownError("catalogue unavailable"), "loading")
	assert.True(t, IsShutdown(err))
	assert.False(t, IsShutdown(errors.New("catalogue unavailable")))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Jo Doe", CleanString("  Jo Doe \n"))
	assert.Equal(t, "jo doe", CleanString(" Jo Doe", true))
}
