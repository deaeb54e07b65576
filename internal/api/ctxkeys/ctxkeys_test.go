package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithValueAndString(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), UserID, "u-999")
	assert.Equal(t, "u-999", String(ctx, UserID))
	assert.Empty(t, String(ctx, Role))
}

func TestKeysDoNotCollideWithPlainStrings(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // deliberately using a bare string key
	ctx := context.WithValue(context.Background(), "user_id", "plain")
	assert.Empty(t, String(ctx, UserID))
}
