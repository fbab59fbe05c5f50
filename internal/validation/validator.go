// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// CodeValidationError is the API error code for rejected input.
const CodeValidationError = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError describes one rejected field.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field is the wire name (json or query tag) of the rejected field.
func (e *ValidationError) Field() string { return e.field }

// Tag is the failing rule, e.g. "required" or "service_type".
func (e *ValidationError) Tag() string { return e.tag }

// Param is the rule argument ("100" for max=100).
func (e *ValidationError) Param() string { return e.param }

// Value is the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every rejected field of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the rejected fields in struct order.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.errors))
	for i := range ve.errors {
		msgs[i] = ve.errors[i].message
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError builds the VALIDATION_ERROR envelope. A single failure reports
// field, tag and value in Details; several failures are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	switch len(ve.errors) {
	case 0:
		return &models.APIError{Code: CodeValidationError, Message: "Validation failed"}
	case 1:
		e := ve.errors[0]
		return &models.APIError{
			Code:    CodeValidationError,
			Message: e.message,
			Details: map[string]interface{}{"field": e.field, "tag": e.tag, "value": e.value},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	msgs := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		fields[i] = map[string]interface{}{"field": e.field, "tag": e.tag, "message": e.message}
		msgs[i] = e.field + ": " + e.message
	}
	return &models.APIError{
		Code:    CodeValidationError,
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator with the catalog rules registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(wireName)
		if err := validate.RegisterValidation("service_type", func(fl validator.FieldLevel) bool {
			return models.ServiceType(fl.Field().String()).Valid()
		}); err != nil {
			panic(fmt.Sprintf("register service_type validator: %v", err))
		}
	})
	return validate
}

// ValidateStruct returns nil when s passes every rule.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}}}
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: describe(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

// wireName reports fields by json name, then query name, then Go name.
func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "query"} {
		if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

var ruleMessages = map[string]func(field, param string, isString bool) string{
	"required":     func(f, _ string, _ bool) string { return f + " is required" },
	"url":          func(f, _ string, _ bool) string { return f + " must be a valid URL" },
	"http_url":     func(f, _ string, _ bool) string { return f + " must be a valid http or https URL" },
	"service_type": func(f, _ string, _ bool) string { return f + " must be a supported service type (" + serviceTypeList() + ")" },
	"oneof":        func(f, p string, _ bool) string { return f + " must be one of: " + p },
	"gte":          func(f, p string, _ bool) string { return f + " must be greater than or equal to " + p },
	"lte":          func(f, p string, _ bool) string { return f + " must be less than or equal to " + p },
	"min": func(f, p string, s bool) string {
		if s {
			return f + " must be at least " + p + " characters"
		}
		return f + " must be at least " + p
	},
	"max": func(f, p string, s bool) string {
		if s {
			return f + " must be at most " + p + " characters"
		}
		return f + " must be at most " + p
	},
}

func describe(fe validator.FieldError) string {
	if msg, ok := ruleMessages[fe.Tag()]; ok {
		return msg(fe.Field(), fe.Param(), fe.Kind() == reflect.String)
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

func serviceTypeList() string {
	names := make([]string, len(models.AllServiceTypes))
	for i, st := range models.AllServiceTypes {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
