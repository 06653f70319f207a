package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	channels []string
	payloads [][]byte
	failOn   string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if channel == p.failOn {
		return errors.New("redis down")
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestResolveChannels(t *testing.T) {
	env, err := NewEnvelope(EventTypeDonationRequested, AggregateDonation, "d1", DonationStatusChangedPayload{DonationID: "d1"}, "donor", "receiver", "donor", "")
	require.NoError(t, err)

	got := NewDonationChannelResolver().ResolveChannels(env)
	assert.Equal(t, []string{"channel:donations", "channel:user:donor", "channel:user:receiver"}, got)
}

func TestRedisEventBusPublishesToEveryChannel(t *testing.T) {
	pub := &recordingPublisher{}
	bus := NewRedisEventBus(pub, NewDonationChannelResolver())

	env, err := NewEnvelope(EventTypeDonationCreated, AggregateDonation, "d1", DonationCreatedPayload{DonationID: "d1", ItemType: "device"}, "donor")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	assert.Equal(t, []string{"channel:donations", "channel:user:donor"}, pub.channels)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, EventTypeDonationCreated, decoded.EventType)
	assert.Nil(t, decoded.Audience)
}

func TestRedisEventBusJoinsFailures(t *testing.T) {
	pub := &recordingPublisher{failOn: "channel:user:donor"}
	bus := NewRedisEventBus(pub, NewDonationChannelResolver())

	env, err := NewEnvelope(EventTypeDonationDeleted, AggregateDonation, "d1", DonationDeletedPayload{DonationID: "d1"}, "donor")
	require.NoError(t, err)

	err = bus.Publish(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel:user:donor")
	assert.Equal(t, []string{"channel:donations"}, pub.channels)
}
