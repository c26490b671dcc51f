//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"flyerxpress/internal/checkout"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	store := NewStore(client, time.Minute, 5*time.Second)

	w := testWizard(t)
	require.NoError(t, store.Save(ctx, w))
	loaded, err := store.Load(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ListingID, loaded.ListingID)

	unlock, err := store.Lock(ctx, w.ID)
	require.NoError(t, err)
	_, err = store.Lock(ctx, w.ID)
	assert.ErrorIs(t, err, checkout.ErrCheckoutBusy)
	unlock()

	unlock, err = store.Lock(ctx, w.ID)
	require.NoError(t, err)
	unlock()
}
