package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ServiceError{Kind: KindConflict, Message: "duplicate title", Err: cause}

	assert.Equal(t, "duplicate title: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not here", notFound("not here").Error())
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("ship order: %w", insufficientStock("only %d left", 2))

	assert.True(t, IsKind(wrapped, KindInsufficientStock))
	assert.False(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindInsufficientStock, kind)
}
