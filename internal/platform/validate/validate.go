// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError], plus tag-driven
// validation of explicit input structs.
//
// # Architecture
//
// This package is used exclusively in the service layer, never in handlers or
// storage. It ensures that business logic only operates on semantically valid data.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taibuivan/vidora/internal/platform/apperr"
)

var (
	// engine is shared; go-playground/validator caches struct metadata and is
	// safe for concurrent use once configured.
	engine = newEngine()

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

func newEngine() *validator.Validate {
	engine := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names ("new_password") instead of Go names ("NewPassword").
	engine.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return engine
}

// Struct validates target against its `validate` struct tags.
//
// It returns a VALIDATION_ERROR [apperr.AppError] listing every failing field,
// or nil when the struct is valid. String fields are expected to be trimmed by
// the caller beforehand.
func Struct(target any) error {
	err := engine.Struct(target)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal(fmt.Errorf("validate_struct_failed: %w", err))
	}

	details := make([]apperr.FieldError, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		details = append(details, apperr.FieldError{
			Field:   fieldErr.Field(),
			Message: describe(fieldErr),
		})
	}
	return apperr.ValidationError("Validation failed", details...)
}

// describe turns a failed rule into a client-facing message.
func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_without":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Minimum %s characters", fieldErr.Param())
	case "max":
		return fmt.Sprintf("Maximum %s characters", fieldErr.Param())
	case "nefield":
		return "Must differ from " + fieldErr.Param()
	default:
		return "Invalid value"
	}
}

// Validator collects field-level validation errors via a fluent, chainable API.
// It covers rules struct tags cannot express.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// MaxBytes fails if the encoded length of value exceeds max bytes.
//
// Unlike the "max" tag, which counts characters, this bounds the byte length.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	if len(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d bytes", max))
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("avatar", avatarPath == "", "Avatar file is required")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
