// Package ventapi binds the fan control core's command and query surface
// onto an HTTP mux, following the same typed-JSON-payload convention as
// the rest of this family of services, grounded on go-chi/chi for
// routing. This is the "UI task" of the core's concurrency model made
// concrete: every handler here just calls a thread-safe ventctl.Core
// method and never touches the core's private state directly.
package ventapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/airqc/ventcore/autoconfig"
	"github.com/airqc/ventcore/transport"
	"github.com/airqc/ventcore/ventctl"
)

// Server binds a ventctl.Core onto chi routes.
type Server struct {
	core *ventctl.Core
}

// New returns a Server wrapping core.
func New(core *ventctl.Core) *Server {
	return &Server{core: core}
}

// RouteTable returns the router-agnostic route table for this service.
func (s *Server) RouteTable() transport.RouteTable {
	return transport.RouteTable{
		{Method: http.MethodGet, Path: "/snapshot"}:        s.getSnapshot,
		{Method: http.MethodPost, Path: "/mode"}:            s.setMode,
		{Method: http.MethodPost, Path: "/manual-step"}:     s.setManualStep,
		{Method: http.MethodPost, Path: "/timer-seconds"}:   s.setTimerSeconds,
		{Method: http.MethodPost, Path: "/start"}:           s.requestStart,
		{Method: http.MethodPost, Path: "/stop"}:            s.requestStop,
		{Method: http.MethodPost, Path: "/auto-start"}:      s.requestAutoStart,
		{Method: http.MethodPost, Path: "/auto-config"}:     s.setAutoConfig,
	}
}

// Mount binds this service's routes onto r at the given path prefix.
func (s *Server) Mount(r chi.Router, prefix string) {
	for mp, handler := range s.RouteTable() {
		switch mp.Method {
		case http.MethodGet:
			r.Get(prefix+mp.Path, handler)
		case http.MethodPost:
			r.Post(prefix+mp.Path, handler)
		}
	}
}

type snapshotView struct {
	Available            bool              `json:"available"`
	Running              bool              `json:"running"`
	Faulted              bool              `json:"faulted"`
	OutputKnown          bool              `json:"output_known"`
	ManualOverrideActive bool              `json:"manual_override_active"`
	AutoResumeBlocked    bool              `json:"auto_resume_blocked"`
	Mode                 string            `json:"mode"`
	ManualStep           int               `json:"manual_step"`
	SelectedTimerSeconds int               `json:"selected_timer_seconds"`
	OutputMV             int               `json:"output_mv"`
	OutputPercent        int               `json:"output_percent"`
	RemainingSeconds     int               `json:"remaining_seconds"`
	AutoConfig           autoconfig.Config `json:"auto_config"`
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.core.Snapshot()
	now := time.Now().UnixMilli()
	transport.WriteJSON(w, snapshotView{
		Available:            snap.Available,
		Running:              snap.Running,
		Faulted:              snap.Faulted,
		OutputKnown:          snap.OutputKnown,
		ManualOverrideActive: snap.ManualOverrideActive,
		AutoResumeBlocked:    snap.AutoResumeBlocked,
		Mode:                 snap.Mode.String(),
		ManualStep:           snap.ManualStep,
		SelectedTimerSeconds: snap.SelectedTimerSeconds,
		OutputMV:             snap.OutputMV,
		OutputPercent:        snap.OutputPercent(),
		RemainingSeconds:     snap.RemainingSeconds(now),
		AutoConfig:           snap.AutoConfig,
	})
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	str, err := transport.DecodeString(r)
	if err != nil {
		transport.WriteError(w, err, http.StatusBadRequest)
		return
	}
	switch str {
	case "manual":
		s.core.SetMode(ventctl.Manual)
	case "auto":
		s.core.SetMode(ventctl.Auto)
	default:
		transport.WriteError(w, errInvalidMode, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) setManualStep(w http.ResponseWriter, r *http.Request) {
	step, err := transport.DecodeInt(r)
	if err != nil {
		transport.WriteError(w, err, http.StatusBadRequest)
		return
	}
	s.core.SetManualStep(step)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) setTimerSeconds(w http.ResponseWriter, r *http.Request) {
	secs, err := transport.DecodeInt(r)
	if err != nil {
		transport.WriteError(w, err, http.StatusBadRequest)
		return
	}
	s.core.SetTimerSeconds(secs)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requestStart(w http.ResponseWriter, r *http.Request) {
	s.core.RequestStart()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requestStop(w http.ResponseWriter, r *http.Request) {
	s.core.RequestStop()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requestAutoStart(w http.ResponseWriter, r *http.Request) {
	s.core.RequestAutoStart()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) setAutoConfig(w http.ResponseWriter, r *http.Request) {
	var cfg autoconfig.Config
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		transport.WriteError(w, err, http.StatusBadRequest)
		return
	}
	s.core.SetAutoConfig(cfg)
	w.WriteHeader(http.StatusOK)
}

var errInvalidMode = modeError("mode must be \"manual\" or \"auto\"")

type modeError string

func (e modeError) Error() string { return string(e) }
