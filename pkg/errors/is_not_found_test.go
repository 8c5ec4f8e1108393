package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claidex/risk-engine/pkg/errors"
)

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			"Generic NotFound",
			errors.NotFound("not found"),
			true,
		},
		{
			"Score NotFound",
			errors.New(errors.ErrCodeScoreNotFound, "no score for npi"),
			true,
		},
		{
			"Run NotFound",
			errors.New(errors.ErrCodeRunNotFound, "run not found"),
			true,
		},
		{
			"Internal Error",
			errors.Internal("internal error"),
			false,
		},
		{
			"Wrapped Score NotFound",
			fmt.Errorf("lookup: %w", errors.New(errors.ErrCodeScoreNotFound, "missing")),
			true,
		},
		{
			"Nil",
			nil,
			false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.IsNotFound(tc.err))
		})
	}
}
