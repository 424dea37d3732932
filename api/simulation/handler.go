// Package simulation exposes the fleet simulations over JSON/HTTP.
package simulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/evfleet/core/model"
	coresim "github.com/kilianp07/evfleet/core/simulation"
	"github.com/kilianp07/evfleet/pkg/export"
)

// NewHandler returns the API routes under /api/targets. Requests must include
// an Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(m *coresim.Manager, token string) http.Handler {
	h := &handler{m: m}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/targets", h.targets)
	mux.HandleFunc("GET /api/targets/{target}/intervals", h.withSim(h.intervals))
	mux.HandleFunc("PUT /api/targets/{target}/intervals", h.withSim(h.saveIntervals))
	mux.HandleFunc("POST /api/targets/{target}/run", h.withSim(h.run))
	mux.HandleFunc("GET /api/targets/{target}/results", h.withSim(h.results))
	mux.HandleFunc("GET /api/targets/{target}/plot", h.withSim(h.plot))
	mux.HandleFunc("POST /api/targets/{target}/persist", h.withSim(h.persist))
	mux.HandleFunc("GET /api/targets/{target}/chart", h.withSim(h.chart))
	return requireToken(token, mux)
}

func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handler struct {
	m *coresim.Manager
}

type simHandler func(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation)

func (h *handler) withSim(fn simHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sim, err := h.m.Get(model.Target(r.PathValue("target")))
		if err != nil {
			writeError(w, err)
			return
		}
		fn(w, r, sim)
	}
}

func (h *handler) targets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.m.Targets())
}

func (h *handler) intervals(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation) {
	ivs, err := sim.Intervals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ivs == nil {
		ivs = []model.FactorInterval{}
	}
	writeJSON(w, http.StatusOK, ivs)
}

func (h *handler) saveIntervals(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation) {
	var ivs []model.FactorInterval
	if err := json.NewDecoder(r.Body).Decode(&ivs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid intervals: " + err.Error()})
		return
	}
	if err := sim.SaveEdits(r.Context(), ivs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation) {
	rs, err := sim.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *handler) results(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation) {
	code := r.URL.Query().Get("scenario")
	if code == "" {
		rs, err := sim.Results()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rs)
		return
	}
	sc, err := model.ParseScenario(code)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	tbl, err := sim.ResultTable(sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}

func (h *handler) plot(w http.ResponseWriter, _ *http.Request, sim *coresim.Simulation) {
	pts, err := sim.PlotSeries()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

func (h *handler) persist(w http.ResponseWriter, r *http.Request, sim *coresim.Simulation) {
	if err := sim.Persist(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) chart(w http.ResponseWriter, _ *http.Request, sim *coresim.Simulation) {
	pts, err := sim.PlotSeries()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteChartHTML(w, sim.Target(), pts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownTarget), errors.Is(err, model.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrMissingFactorData), errors.Is(err, model.ErrDomain),
		errors.Is(err, model.ErrCalibration), errors.Is(err, model.ErrDataUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
