package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz    int    `yaml:"tick_rate_hz"`
	Seed          int64  `yaml:"seed"`
	BroadcastMode string `yaml:"broadcast_mode"` // delta | full

	Network    Network    `yaml:"network"`
	RateLimits RateLimits `yaml:"rate_limits"`
	Limits     Limits     `yaml:"limits"`
	Timeouts   Timeouts   `yaml:"timeouts"`
	Journal    Journal    `yaml:"journal"`
}

// Network holds the per entity type view distances used by the delta codec.
type Network struct {
	GridCellSize         float32 `yaml:"grid_cell_size"`
	PlayerViewDistance   float32 `yaml:"player_view_distance"`
	NPCViewDistance      float32 `yaml:"npc_view_distance"`
	TownNPCViewDistance  float32 `yaml:"town_npc_view_distance"`
	BuildingViewDistance float32 `yaml:"building_view_distance"`
	EnvViewDistance      float32 `yaml:"environment_view_distance"`
	FloatEpsilon         float32 `yaml:"float_epsilon"`
}

// RateLimits is the minimum time between two updates of the same entity to
// the same client, per entity type.
type RateLimits struct {
	PlayerSec   float64 `yaml:"player_sec"`
	NPCSec      float64 `yaml:"npc_sec"`
	TownNPCSec  float64 `yaml:"town_npc_sec"`
	BuildingSec float64 `yaml:"building_sec"`
	EnvSec      float64 `yaml:"environment_sec"`
	DefaultSec  float64 `yaml:"default_sec"`
}

type Limits struct {
	MaxClients int `yaml:"max_clients"`
	// MaxConnections caps open sessions, spawned or still in the handshake.
	MaxConnections int    `yaml:"max_connections"`
	MaxBodies      int    `yaml:"max_bodies"`
	OutboundQueue  int    `yaml:"outbound_queue"`
	InboxQueue     int    `yaml:"inbox_queue"`
	MaxPayload     uint32 `yaml:"max_payload"`
}

type Timeouts struct {
	ReadIdleSec int `yaml:"read_idle_sec"`
	WriteSec    int `yaml:"write_sec"`
	ShutdownSec int `yaml:"shutdown_sec"`
}

type Journal struct {
	Enabled bool `yaml:"enabled"`
	// DigestEveryTicks records a state digest every N ticks; 0 disables it.
	DigestEveryTicks int `yaml:"digest_every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1",
		TickRateHz:      60,
		Seed:            1,
		BroadcastMode:   "delta",
		Network: Network{
			GridCellSize:         500,
			PlayerViewDistance:   1500,
			NPCViewDistance:      1200,
			TownNPCViewDistance:  1000,
			BuildingViewDistance: 3000,
			EnvViewDistance:      2000,
			FloatEpsilon:         0.01,
		},
		RateLimits: RateLimits{
			PlayerSec:   1.0 / 60,
			NPCSec:      1.0 / 60,
			TownNPCSec:  1.0 / 60,
			BuildingSec: 999,
			EnvSec:      999,
			DefaultSec:  0.05,
		},
		Limits: Limits{
			MaxClients:     256,
			MaxConnections: 288,
			MaxBodies:      4096,
			OutboundQueue:  256,
			InboxQueue:     1024,
			MaxPayload:     1 << 20,
		},
		Timeouts: Timeouts{
			ReadIdleSec: 60,
			WriteSec:    10,
			ShutdownSec: 5,
		},
		Journal: Journal{DigestEveryTicks: 60},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate_hz %d out of range 1..1000", t.TickRateHz))
	}
	switch t.BroadcastMode {
	case "delta", "full":
	default:
		errs = append(errs, fmt.Errorf("broadcast_mode %q must be delta or full", t.BroadcastMode))
	}
	if t.Network.GridCellSize <= 0 {
		errs = append(errs, errors.New("network.grid_cell_size must be > 0"))
	}
	if t.Network.FloatEpsilon < 0 {
		errs = append(errs, errors.New("network.float_epsilon must be >= 0"))
	}
	for name, v := range map[string]float32{
		"player_view_distance":      t.Network.PlayerViewDistance,
		"npc_view_distance":         t.Network.NPCViewDistance,
		"town_npc_view_distance":    t.Network.TownNPCViewDistance,
		"building_view_distance":    t.Network.BuildingViewDistance,
		"environment_view_distance": t.Network.EnvViewDistance,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("network.%s must be > 0", name))
		}
	}
	r := t.RateLimits
	if r.PlayerSec < 0 || r.NPCSec < 0 || r.TownNPCSec < 0 || r.BuildingSec < 0 || r.EnvSec < 0 || r.DefaultSec < 0 {
		errs = append(errs, errors.New("rate_limits must be >= 0"))
	}
	l := t.Limits
	if l.MaxClients <= 0 || l.OutboundQueue <= 0 || l.InboxQueue <= 0 || l.MaxPayload == 0 {
		errs = append(errs, errors.New("limits: max_clients, outbound_queue, inbox_queue and max_payload must be > 0"))
	}
	if l.MaxConnections < l.MaxClients {
		errs = append(errs, fmt.Errorf("limits.max_connections %d below max_clients %d", l.MaxConnections, l.MaxClients))
	}
	if l.MaxBodies < 0 {
		errs = append(errs, errors.New("limits.max_bodies must be >= 0"))
	}
	return errors.Join(errs...)
}

// TickInterval is the wall-clock period of one tick.
func (t Tuning) TickInterval() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

// DT is the fixed simulation step in seconds.
func (t Tuning) DT() float32 {
	return 1 / float32(t.TickRateHz)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (t Timeouts) ReadIdle() time.Duration { return seconds(t.ReadIdleSec) }
func (t Timeouts) Write() time.Duration    { return seconds(t.WriteSec) }
func (t Timeouts) Shutdown() time.Duration { return seconds(t.ShutdownSec) }
