package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mmoarena.ai/internal/sim/world"
)

type Stats struct {
	Sessions   int     `json:"sessions"`
	Joining    int     `json:"joining"`
	Spawned    int     `json:"spawned"`
	Rejected   uint64  `json:"rejected"`
	Broadcasts uint64  `json:"broadcasts"`
	UptimeSec  float64 `json:"uptime_sec"`
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	st := Stats{Sessions: len(s.sessions), Joining: len(s.joining)}
	s.mu.Unlock()
	st.Spawned = int(s.spawnedCount.Load())
	st.Rejected = s.rejected.Load()
	st.Broadcasts = s.broadcasts.Load()
	st.UptimeSec = time.Since(s.started).Seconds()
	return st
}

// MetricsHandler serves world and server counters in the Prometheus text
// format.
func (s *Server) MetricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := s.world.Metrics()
		st := s.Stats()

		gauge(rw, "mmoarena_world_tick", "Current world tick.", float64(m.Tick))
		gauge(rw, "mmoarena_world_step_ms", "Last tick step duration in milliseconds.", m.StepMS)
		gauge(rw, "mmoarena_world_bodies", "Live physics bodies.", float64(m.Bodies))
		gauge(rw, "mmoarena_world_body_failures", "Physics body creations that failed.", float64(m.BodyFailures))
		gauge(rw, "mmoarena_world_grid_cells", "Occupied spatial grid cells.", float64(m.GridCells))

		fmt.Fprintf(rw, "# HELP mmoarena_world_entities Live entities by kind.\n")
		fmt.Fprintf(rw, "# TYPE mmoarena_world_entities gauge\n")
		fmt.Fprintf(rw, "mmoarena_world_entities{kind=%q} %d\n", "all", m.Entities)
		fmt.Fprintf(rw, "mmoarena_world_entities{kind=%q} %d\n", "player", m.Players)
		fmt.Fprintf(rw, "mmoarena_world_entities{kind=%q} %d\n", "npc", m.NPCs)
		fmt.Fprintf(rw, "mmoarena_world_entities{kind=%q} %d\n", "town_npc", m.TownNPCs)
		fmt.Fprintf(rw, "mmoarena_world_entities{kind=%q} %d\n", "static", m.Static)

		fmt.Fprintf(rw, "# HELP mmoarena_world_queue_depth Mailbox backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE mmoarena_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "mmoarena_world_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "mmoarena_world_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "mmoarena_world_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)

		counter(rw, "mmoarena_world_dropped_inputs_total", "Inputs dropped on a full inbox.", m.DroppedInputs)
		counter(rw, "mmoarena_world_contacts_total", "Physics contacts reported.", m.Contacts)
		counter(rw, "mmoarena_world_player_npc_contacts_total", "Contacts between a player and an NPC.", m.PlayerNPCContacts)
		counter(rw, "mmoarena_world_hits_total", "Landed hits.", m.Hits)
		counter(rw, "mmoarena_world_kills_total", "Hits that killed the target.", m.Kills)

		gauge(rw, "mmoarena_server_sessions", "Open client sessions.", float64(st.Sessions))
		gauge(rw, "mmoarena_server_joining", "Sessions waiting for a spawn.", float64(st.Joining))
		gauge(rw, "mmoarena_server_spawned", "Sessions with a player in the world.", float64(st.Spawned))
		counter(rw, "mmoarena_server_rejected_total", "Joins rejected.", st.Rejected)
		counter(rw, "mmoarena_server_broadcasts_total", "Tick broadcasts sent.", st.Broadcasts)
	}
}

// StateHandler serves the same numbers as JSON.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			Metrics world.WorldMetrics `json:"metrics"`
			Server  Stats              `json:"server"`
		}{
			Metrics: s.world.Metrics(),
			Server:  s.Stats(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func gauge(rw http.ResponseWriter, name, help string, v float64) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	fmt.Fprintf(rw, "%s %g\n", name, v)
}

func counter(rw http.ResponseWriter, name, help string, v uint64) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s counter\n", name)
	fmt.Fprintf(rw, "%s %d\n", name, v)
}
