package errors

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/target/sensemaker/internal/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	pathErr := &fs.PathError{Op: "remove", Path: "/tmp/x", Err: fs.ErrPermission}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: fmt.Errorf("publish: %w", apperrors.Validation("nope")), want: "validation"},
		{name: "wrapped not found", err: fmt.Errorf("get: %w", apperrors.NotFound("job")), want: "not_found"},
		{name: "path error unwraps to cause", err: pathErr, want: "errors_errorstring"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
