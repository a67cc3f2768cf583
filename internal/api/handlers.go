package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hark-stt/hark-core/internal/supervisor"
	"github.com/hark-stt/hark-core/internal/transcript"
)

// componentCheckTimeout bounds one component probe during /healthz.
const componentCheckTimeout = 3 * time.Second

// componentStatus is one component's health in the /healthz response.
type componentStatus struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
}

// healthzResponse is the GET /healthz response body.
type healthzResponse struct {
	Status     string                     `json:"status"`
	Supervisor supervisor.State           `json:"supervisor"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// handleHealthz reports liveness. The service is unhealthy when the
// supervisor has failed or a required component probe fails; optional
// components are reported but never take the service down.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Status:     "ok",
		Supervisor: s.supervisor.State(),
	}

	if resp.Supervisor == supervisor.StateFailed {
		resp.Status = "unhealthy"
	}

	if len(s.components) > 0 {
		resp.Components = make(map[string]componentStatus, len(s.components))
	}
	for _, c := range s.components {
		ctx, cancel := context.WithTimeout(r.Context(), componentCheckTimeout)
		err := c.Check(ctx)
		cancel()

		status := componentStatus{Status: "ok", Required: c.Required}
		if err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			if c.Required {
				resp.Status = "unhealthy"
			}
		}
		resp.Components[c.Name] = status
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// statusResponse is the GET /api/v1/status response body.
type statusResponse struct {
	Service       string           `json:"service"`
	Version       string           `json:"version"`
	Commit        string           `json:"commit,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Supervisor    supervisor.Stats `json:"supervisor"`
	Pipeline      transcript.Stats `json:"pipeline"`
	StreamClients int              `json:"stream_clients"`
}

// handleStatus returns the service status snapshot: build info, supervisor
// statistics, and pipeline statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Service:       "hark",
		Version:       s.version,
		Commit:        s.commit,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Supervisor:    s.supervisor.Stats(),
		Pipeline:      s.pipeline.Stats(),
		StreamClients: s.Hub().ClientCount(),
	})
}

// transcriptsResponse is the GET /api/v1/transcripts response body.
type transcriptsResponse struct {
	Transcripts []transcript.Entry `json:"transcripts"`
	Count       int                `json:"count"`
}

// handleListTranscripts returns stored transcripts. With ?session_id= it
// returns that session's sentences in spoken order; otherwise the most
// recent sentences across sessions. ?limit= is clamped by the store.
func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		entries []transcript.Entry
		err     error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		entries, err = s.store.BySession(r.Context(), sessionID, limit)
	} else {
		entries, err = s.store.Recent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("transcript query failed", "error", err)
		writeInternalError(w, "querying transcripts failed")
		return
	}

	if entries == nil {
		entries = []transcript.Entry{}
	}
	writeJSON(w, http.StatusOK, transcriptsResponse{
		Transcripts: entries,
		Count:       len(entries),
	})
}
