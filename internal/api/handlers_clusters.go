package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/clusterdesk/internal/cluster"
	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/highlight"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDocketHierarchy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req cluster.HierarchyRequest
	var err error

	if req.Cutoff, err = optionalFloat(q.Get("cutoff")); err != nil {
		jsonError(w, "invalid cutoff: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PrepopulateDocument, err = optionalInt(q.Get("prepopulate_document")); err != nil {
		jsonError(w, "invalid prepopulate_document: "+err.Error(), http.StatusBadRequest)
		return
	}
	if v := q.Get("require_summaries"); v != "" {
		if req.RequireSummaries, err = strconv.ParseBool(v); err != nil {
			jsonError(w, "invalid require_summaries: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	resp, err := s.service.DocketHierarchy(r.Context(), chi.URLParam(r, "docketID"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleTeaser(kind cluster.ItemType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.service.Teaser(r.Context(), chi.URLParam(r, param), kind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (s *Server) handleSingleCluster(w http.ResponseWriter, r *http.Request) {
	clusterID, err := strconv.ParseInt(chi.URLParam(r, "clusterID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid cluster id", http.StatusBadRequest)
		return
	}
	cutoff, err := optionalFloat(r.URL.Query().Get("cutoff"))
	if err != nil {
		jsonError(w, "invalid cutoff: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.service.SingleCluster(r.Context(), chi.URLParam(r, "docketID"), clusterID, cutoff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleDocumentCluster(w http.ResponseWriter, r *http.Request) {
	clusterID, err := strconv.ParseInt(chi.URLParam(r, "clusterID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid cluster id", http.StatusBadRequest)
		return
	}
	docID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	cutoff, err := optionalFloat(r.URL.Query().Get("cutoff"))
	if err != nil {
		jsonError(w, "invalid cutoff: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.service.DocumentCluster(r.Context(), chi.URLParam(r, "docketID"), clusterID, docID, cutoff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleClusterChain(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return
	}

	resp, err := s.service.ClusterChain(r.Context(), chi.URLParam(r, "docketID"), docID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func optionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optionalInt(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// writeError maps service errors onto status codes. Anything that is not a
// missing resource or a bad parameter is logged as a server fault.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, corpus.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hierarchy.ErrCutoffRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case isPrecondition(err):
		s.log.Error("precondition violated",
			"path", r.URL.Path,
			"error", err,
		)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("request failed",
			"path", r.URL.Path,
			"error", err,
		)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func isPrecondition(err error) bool {
	var inv *hierarchy.InvariantError
	return errors.Is(err, highlight.ErrSpanOutOfBounds) || errors.Is(err, highlight.ErrClusterSize) || errors.As(err, &inv)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, v)
}

func writeJSONBody(w http.ResponseWriter, v any) {
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
