package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/vempat/vempat/internal/remote"
)

// Collection names are plain identifiers. Names starting with "_" are
// reserved for server bookkeeping such as user accounts.
var collectionName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// docParams extracts and checks the collection and id path values. It
// writes the error response itself and returns ok=false on bad input.
func docParams(w http.ResponseWriter, r *http.Request, needID bool) (collection, id string, ok bool) {
	collection = chi.URLParam(r, "collection")
	if !collectionName.MatchString(collection) {
		writeError(w, http.StatusBadRequest, "invalid collection name")
		return "", "", false
	}
	id = chi.URLParam(r, "id")
	if needID && id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return "", "", false
	}
	return collection, id, true
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	collection, _, ok := docParams(w, r, false)
	if !ok {
		return
	}
	docs, err := s.docs.List(r.Context(), collection)
	if err != nil {
		logFor(r.Context()).Error("list documents", "collection", collection, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []remote.Document{}
	}
	s.metrics.recordDocOp(collection, "list")
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := docParams(w, r, true)
	if !ok {
		return
	}
	fields, err := s.docs.Get(r.Context(), collection, id)
	if errors.Is(err, remote.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("get document", "collection", collection, "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to read document")
		return
	}
	s.metrics.recordDocOp(collection, "get")
	writeJSON(w, http.StatusOK, remote.Document{ID: id, Fields: fields})
}

// handleMergeDoc merges the body's top-level fields into the document,
// creating it if absent.
func (s *Server) handleMergeDoc(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := docParams(w, r, true)
	if !ok {
		return
	}
	var fields remote.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON object: "+err.Error())
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "empty document")
		return
	}
	if err := s.docs.Merge(r.Context(), collection, id, fields); err != nil {
		logFor(r.Context()).Error("merge document", "collection", collection, "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to write document")
		return
	}
	s.metrics.recordDocOp(collection, "merge")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := docParams(w, r, true)
	if !ok {
		return
	}
	err := s.docs.Delete(r.Context(), collection, id)
	if errors.Is(err, remote.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("delete document", "collection", collection, "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	s.metrics.recordDocOp(collection, "delete")
	w.WriteHeader(http.StatusNoContent)
}
