package fieldbridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexide/autons/compete"
)

func TestClientDrivesFeedThroughServer(t *testing.T) {
	feed := NewFeed()
	srv := NewServer(testSettings(DefaultMaxBodyBytes), WithProcessor(feed))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := NewClient(srv.BaseURL() + "/")

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, health.Version)

	require.NoError(t, client.Send(ctx, compete.PhaseAutonomous))
	require.NoError(t, client.Send(ctx, compete.PhaseDriverControl))
	require.NoError(t, client.Disconnect(ctx))

	var got []compete.Phase
	for p := range feed.Phases() {
		got = append(got, p)
	}
	assert.Equal(t, []compete.Phase{compete.PhaseAutonomous, compete.PhaseDriverControl}, got)

	err = client.Send(ctx, compete.PhaseDisabled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 410")
}

func TestClientSequencesIncrease(t *testing.T) {
	fixed := time.Unix(1730000000, 0)
	client := NewClient("http://127.0.0.1:1")
	client.clock = func() time.Time { return fixed }
	first := client.nextSequence(fixed)
	second := client.nextSequence(fixed)
	assert.Greater(t, second, first)
}
