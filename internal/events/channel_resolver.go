package events

import (
	"fmt"
)

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(env Envelope) []string
}

// DonationChannelResolver fans an event out to the shared feed and to one
// channel per interested user.
type DonationChannelResolver struct{}

func NewDonationChannelResolver() *DonationChannelResolver {
	return &DonationChannelResolver{}
}

func (r *DonationChannelResolver) ResolveChannels(env Envelope) []string {
	channels := []string{fmt.Sprintf("channel:%ss", env.AggregateType)}

	seen := make(map[string]bool, len(env.Audience))
	for _, id := range env.Audience {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		channels = append(channels, fmt.Sprintf("channel:user:%s", id))
	}
	return channels
}
