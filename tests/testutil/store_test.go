package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

func TestNewTestStoreIsMigrated(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, model.User{Email: "ann@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
