package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// SkipIfShort skips container-backed tests under -short
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// NewTestDatabase starts a container and returns a fresh database on it.
// The container is terminated when the test finishes.
func NewTestDatabase(t *testing.T, name string) *mongo.Database {
	t.Helper()
	SkipIfShort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	client, err := container.GetClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client.Database(name)
}
