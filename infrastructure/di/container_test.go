package di

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tablegrid/application/commands"
	"tablegrid/application/queries"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"
	"tablegrid/infrastructure/config"
	"tablegrid/infrastructure/messaging/eventbridge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		ServiceName:        "tablegrid",
		AWSRegion:          "us-east-1",
		TableName:          "local",
		StoreDriver:        config.DriverLocal,
		ScanPageSize:       2,
		CacheTTL:           time.Minute,
		GatePassword:       "pw",
		SessionSecret:      "secret",
		SessionTTL:         time.Hour,
		LoginRatePerMinute: 5,
		BlankRowPolicy:     domain.BlankRowsModify,
		LogLevel:           "error",
	}
}

func TestInitializeContainer(t *testing.T) {
	ctx := context.Background()
	c, cleanup, err := InitializeContainer(ctx, localConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, c.CloudWatch)
	assert.IsType(t, eventbridge.NoopPublisher{}, ProvideEventPublisher(c.Config, nil, c.Logger))

	ok, err := c.Gate.Check("pw")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Store.Put(ctx, entities.Row{"id": "1", "name": "A", "value": json.Number("1")}))

	res, err := c.QueryBus.Ask(ctx, queries.LoadSnapshotQuery{SessionID: "s1"})
	require.NoError(t, err)
	snapshot := res.(*queries.SnapshotResult)
	require.Len(t, snapshot.Rows, 1)

	out, err := c.CommandBus.Send(ctx, commands.SubmitChangesCommand{
		SessionID: "s1",
		Rows: entities.Snapshot{
			{"id": "1", "name": "A", "value": json.Number("2")},
			{"name": "B", "value": json.Number("3")},
		},
	})
	require.NoError(t, err)

	result := out.(*commands.SubmitResult)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"1"}, result.Modified)
	assert.Len(t, result.Added, 1)
	assert.Empty(t, result.Deleted)
	require.NotNil(t, result.Refreshed)
	assert.Len(t, result.Refreshed.Rows, 2)
}

func TestInitializeContainerRejectsBadLogLevel(t *testing.T) {
	cfg := localConfig()
	cfg.LogLevel = "chatty"

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
