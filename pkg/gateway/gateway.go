// Package gateway implements a stand-in for the control plane's
// provisioning callback endpoint, for contract tests and lab use. The
// production endpoint belongs to the configuration-management control
// plane itself.
package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjpeterson/ztprov/pkg/logging"
)

// Job is one scheduled configuration run.
type Job struct {
	ID         uuid.UUID `json:"id"`
	TemplateID int       `json:"template_id"`
	Limit      string    `json:"limit"`
	Created    time.Time `json:"created"`
}

// JobLauncher schedules a configuration run scoped to a single host.
type JobLauncher interface {
	Launch(templateID int, limit string) (Job, error)
}

// MemoryLauncher records launched jobs in memory.
type MemoryLauncher struct {
	mu   sync.Mutex
	jobs []Job
}

// Launch records a job and assigns it an id.
func (m *MemoryLauncher) Launch(templateID int, limit string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := Job{ID: uuid.New(), TemplateID: templateID, Limit: limit, Created: time.Now().UTC()}
	m.jobs = append(m.jobs, job)
	return job, nil
}

// Jobs returns a copy of everything launched so far.
func (m *MemoryLauncher) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Job(nil), m.jobs...)
}

// Server validates callbacks and schedules jobs.
type Server struct {
	HostConfigKey string
	NodeName      string
	Launcher      JobLauncher
	Log           *logging.Logger
}

type callbackRequest struct {
	HostConfigKey string `json:"host_config_key"`
}

// Handler returns the HTTP handler for the callback API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/job_templates/{id}/callback/", s.handleCallback)
	return mux
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	templateID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown job template")
		return
	}
	defer r.Body.Close()
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed callback body")
		return
	}
	if req.HostConfigKey == "" || req.HostConfigKey != s.HostConfigKey {
		s.Log.Warnf("rejected callback for template %d from %s: bad host config key", templateID, r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid host config key")
		return
	}
	// The resulting run is limited to the calling host, never the
	// full inventory.
	limit := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		limit = host
	}
	job, err := s.Launcher.Launch(templateID, limit)
	if err != nil {
		s.Log.Errorf("launch failed for template %d: %v", templateID, err)
		writeError(w, http.StatusServiceUnavailable, "could not schedule job")
		return
	}
	s.Log.Infof("scheduled job %s for template %d limited to %s", job.ID, templateID, limit)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/v2/jobs/"+job.ID.String()+"/")
	w.Header().Set("X-API-Node", s.NodeName)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(job); err != nil {
		s.Log.Errorf("encode callback response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
