package realtime

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/proto"
)

// Relay fans outbound frames out to connected users. Delivery is best
// effort: a failed send marks the connection dead and disconnects it.
type Relay struct {
	reg *Registry
	log *zerolog.Logger
}

// NewRelay builds a relay over the given registry.
func NewRelay(reg *Registry, logger *zerolog.Logger) *Relay {
	return &Relay{reg: reg, log: logger}
}

// SendToUser delivers a frame to one user, if connected. On failure the
// user's connection is torn down along with all its presence state.
func (rl *Relay) SendToUser(out proto.Outbound, userID uuid.UUID) {
	c, ok := rl.reg.Client(userID)
	if !ok {
		return
	}
	if !c.TrySend(out) {
		rl.log.Warn().Str("user_id", userID.String()).Str("frame", out.Type).Msg("send failed, disconnecting user")
		rl.reg.Disconnect(userID)
	}
}

// SendToChannel delivers a frame to every member of the channel's presence
// set except the excluded user. Failed recipients are collected and
// disconnected after the iteration so the set is not mutated mid-loop.
func (rl *Relay) SendToChannel(out proto.Outbound, channelID uuid.UUID, exclude *uuid.UUID) {
	var failed []uuid.UUID
	for _, c := range rl.reg.ChannelClients(channelID) {
		if exclude != nil && c.UserID == *exclude {
			continue
		}
		if !c.TrySend(out) {
			failed = append(failed, c.UserID)
		}
	}

	for _, userID := range failed {
		rl.log.Warn().
			Str("user_id", userID.String()).
			Str("channel_id", channelID.String()).
			Str("frame", out.Type).
			Msg("channel send failed, disconnecting user")
		rl.reg.Disconnect(userID)
	}
}
