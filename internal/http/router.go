package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"VectorInit/internal/ingest"
	mdb "VectorInit/internal/mongo"
)

// RunState remembers the outcome of the latest bootstrap run in watch mode.
type RunState struct {
	mu      sync.RWMutex
	runs    int
	last    *ingest.Report
	lastErr string
}

func (s *RunState) Record(rep ingest.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.last = &rep
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

// Last returns the run count, the latest report and its error text.
func (s *RunState) Last() (int, *ingest.Report, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs, s.last, s.lastErr
}

func NewRouter(mc *mdb.Client, st *RunState) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status  string         `json:"status"`
			Time    time.Time      `json:"time"`
			DB      string         `json:"db"`
			Runs    int            `json:"runs"`
			LastRun *ingest.Report `json:"last_run,omitempty"`
			Error   string         `json:"error,omitempty"`
		}
		runs, last, lastErr := st.Last()
		out := resp{
			Status:  "ok",
			Time:    time.Now().UTC(),
			DB:      mc.DB.Name(),
			Runs:    runs,
			LastRun: last,
			Error:   lastErr,
		}
		code := http.StatusOK
		switch {
		case runs == 0:
			out.Status = "pending"
			code = http.StatusServiceUnavailable
		case lastErr != "":
			out.Status = "failing"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}
