package netview

import (
	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/tuning"
)

// Config holds the per entity type replication policy.
type Config struct {
	ViewDistance    [protocol.EntityTypeCount]float32
	MinInterval     [protocol.EntityTypeCount]float64
	DefaultInterval float64
	Epsilon         float32
}

func ConfigFromTuning(t tuning.Tuning) Config {
	n, r := t.Network, t.RateLimits
	var c Config
	c.ViewDistance[protocol.EntityPlayer] = n.PlayerViewDistance
	c.ViewDistance[protocol.EntityNPC] = n.NPCViewDistance
	c.ViewDistance[protocol.EntityTownNPC] = n.TownNPCViewDistance
	c.ViewDistance[protocol.EntityBuilding] = n.BuildingViewDistance
	c.ViewDistance[protocol.EntityEnvironment] = n.EnvViewDistance
	c.MinInterval[protocol.EntityPlayer] = r.PlayerSec
	c.MinInterval[protocol.EntityNPC] = r.NPCSec
	c.MinInterval[protocol.EntityTownNPC] = r.TownNPCSec
	c.MinInterval[protocol.EntityBuilding] = r.BuildingSec
	c.MinInterval[protocol.EntityEnvironment] = r.EnvSec
	c.DefaultInterval = r.DefaultSec
	c.Epsilon = n.FloatEpsilon
	return c
}

func (c *Config) viewDistance(t protocol.EntityType) float32 {
	if int(t) < len(c.ViewDistance) {
		return c.ViewDistance[t]
	}
	return 0
}

func (c *Config) interval(t protocol.EntityType) float64 {
	if int(t) < len(c.MinInterval) {
		return c.MinInterval[t]
	}
	return c.DefaultInterval
}
