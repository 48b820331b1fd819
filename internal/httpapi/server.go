// Package httpapi exposes the explorer core over a JSON HTTP API. It is a
// thin consumer: all behavior goes through the Explorer interface.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lualab/luascope/internal/logging"
	"github.com/lualab/luascope/pkg/harness"
	"github.com/lualab/luascope/pkg/host"
	"github.com/lualab/luascope/pkg/library"
)

// Explorer defines the surface of the explorer core consumed over HTTP.
type Explorer interface {
	Examples() []library.Example
	Example(id string) (library.Example, bool)
	Refresh() error
	LibraryVersion() uint64
	RunExampleWith(id string, inputs map[string]string) (*host.Output, error)
	RunSuite(exampleID, suiteID string) (*harness.SuiteResult, error)
}

// Server handles the HTTP routes.
type Server struct {
	explorer Explorer
	logger   *slog.Logger
}

// NewHandler builds the HTTP handler for the explorer.
func NewHandler(explorer Explorer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{explorer: explorer, logger: logger}

	r := chi.NewRouter()
	r.Get("/api/version", s.version)
	r.Get("/api/examples", s.listExamples)
	r.Get("/api/examples/{id}", s.getExample)
	r.Post("/api/refresh", s.refresh)
	r.Post("/api/examples/{id}/run", s.runExample)
	r.Post("/api/examples/{id}/suites/{suite}/run", s.runSuite)
	return r
}

type exampleDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Note        string   `json:"note,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Script      string   `json:"script"`
	DocsSummary string   `json:"docs_summary,omitempty"`
	TestSuites  []string `json:"test_suites,omitempty"`
}

type runRequest struct {
	Inputs map[string]string `json:"inputs,omitempty"`
}

type runResponse struct {
	ReturnValue *string `json:"return_value"`
	Stdout      string  `json:"stdout"`
	Stderr      string  `json:"stderr"`
	DurationMS  float64 `json:"duration_ms"`
}

type caseDTO struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Stdout     string  `json:"stdout,omitempty"`
	Stderr     string  `json:"stderr,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type suiteResultDTO struct {
	SuiteID         string    `json:"suite_id"`
	SuiteName       string    `json:"suite_name"`
	Passed          bool      `json:"passed"`
	TotalDurationMS float64   `json:"total_duration_ms"`
	SetupStdout     string    `json:"setup_stdout,omitempty"`
	SetupStderr     string    `json:"setup_stderr,omitempty"`
	Cases           []caseDTO `json:"cases"`
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]uint64{"version": s.explorer.LibraryVersion()})
}

func (s *Server) listExamples(w http.ResponseWriter, r *http.Request) {
	examples := s.explorer.Examples()
	out := make([]exampleDTO, 0, len(examples))
	for _, e := range examples {
		out = append(out, toDTO(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getExample(w http.ResponseWriter, r *http.Request) {
	example, ok := s.explorer.Example(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "example not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, toDTO(example))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.explorer.Refresh(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"version": s.explorer.LibraryVersion()})
}

func (s *Server) runExample(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	out, err := s.explorer.RunExampleWith(chi.URLParam(r, "id"), body.Inputs)
	if err != nil {
		var scriptErr *host.ScriptError
		if errors.As(err, &scriptErr) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": scriptErr.Error()})
			return
		}
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, runResponse{
		ReturnValue: out.ReturnValue,
		Stdout:      out.Stdout,
		Stderr:      out.Stderr,
		DurationMS:  float64(out.Duration.Microseconds()) / 1000,
	})
}

func (s *Server) runSuite(w http.ResponseWriter, r *http.Request) {
	result, err := s.explorer.RunSuite(chi.URLParam(r, "id"), chi.URLParam(r, "suite"))
	if err != nil {
		if errors.Is(err, harness.ErrNoTests) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	dto := suiteResultDTO{
		SuiteID:         result.SuiteID,
		SuiteName:       result.SuiteName,
		Passed:          result.Passed,
		TotalDurationMS: float64(result.TotalDuration.Microseconds()) / 1000,
		SetupStdout:     result.SetupStdout,
		SetupStderr:     result.SetupStderr,
		Cases:           make([]caseDTO, 0, len(result.Cases)),
	}
	for _, c := range result.Cases {
		dto.Cases = append(dto.Cases, caseDTO{
			Name:       c.Name,
			Status:     c.Status.String(),
			DurationMS: float64(c.Duration.Microseconds()) / 1000,
			Stdout:     c.Stdout,
			Stderr:     c.Stderr,
			Error:      c.Error,
		})
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func toDTO(e library.Example) exampleDTO {
	dto := exampleDTO{
		ID:          e.Metadata.ID,
		Title:       e.Metadata.Title,
		Description: e.Metadata.Description,
		Note:        e.Metadata.Note,
		Categories:  e.Metadata.Categories,
		Script:      e.Script,
	}
	if e.Docs != nil {
		dto.DocsSummary = e.Docs.Summary
	}
	for _, suite := range e.TestSuites {
		dto.TestSuites = append(dto.TestSuites, suite.ID)
	}
	return dto
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}
