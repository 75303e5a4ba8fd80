// Package errors derives metric-friendly labels from errors.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/target/sensemaker/internal/errors"
)

// Classify returns a short label for err. Application errors are labelled by their code;
// anything else by the innermost wrapped type, e.g. "errors_errorstring".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
