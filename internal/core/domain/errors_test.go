package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestIsPreExecution(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cycle", zerr.With(zerr.Wrap(domain.ErrCycleDetected, "build"), "cycle", "a -> a"), true},
		{"schema", zerr.Wrap(domain.ErrSchemaViolation, "resolve"), true},
		{"code version", domain.ErrMissingCodeVersion, true},
		{"step", zerr.Wrap(domain.ErrInvalidMappingKey, "expand"), false},
		{"closed", domain.ErrRunClosed, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsPreExecution(tt.err))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, domain.ErrStepKeyCollision, domain.ErrGraph)
	assert.ErrorIs(t, domain.ErrSchemaViolation, domain.ErrConfigValidation)
	assert.ErrorIs(t, domain.ErrMissingCodeVersion, domain.ErrUnresolvableVersion)
	assert.ErrorIs(t, domain.ErrDuplicateMappingKey, domain.ErrStepExecution)
	assert.NotErrorIs(t, domain.ErrRunClosed, domain.ErrGraph)
}
