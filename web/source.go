package web

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/robinvdvleuten/ledgerscript/errors"
)

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// errorList renders err for a response body, expanding multi-row run
// errors.
func errorList(err error) []errors.ErrorJSON {
	return errors.NewJSONFormatter().FormatAllToSlice(errors.Flatten(err))
}

type SourceResponse struct {
	Filepath string             `json:"filepath"`
	Source   string             `json:"source"`
	Errors   []errors.ErrorJSON `json:"errors"`
}

// buildResponse creates a SourceResponse from the current program state.
// Must be called with s.mu held for reading.
func (s *Server) buildResponse() *SourceResponse {
	return &SourceResponse{
		Filepath: s.programFile,
		Source:   string(s.source),
		Errors:   errorList(s.programErr),
	}
}

// handleGetSource handles GET requests to /api/source.
// Returns the program source and its parse errors as JSON.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	if s.programFile == "" {
		http.Error(w, "no program file configured", http.StatusNotFound)
		return
	}

	s.mu.RLock()
	response := s.buildResponse()
	s.mu.RUnlock()

	writeJSONResponse(w, response)
}

// handlePutSource handles PUT requests to /api/source.
// Writes the provided source to the program file and returns its parse
// errors.
func (s *Server) handlePutSource(w http.ResponseWriter, r *http.Request) {
	if s.programFile == "" {
		http.Error(w, "no program file configured", http.StatusNotFound)
		return
	}

	var request struct {
		Source string `json:"source"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := os.WriteFile(s.programFile, []byte(request.Source), 0600); err != nil {
		http.Error(w, "Failed to write file", http.StatusInternalServerError)
		return
	}

	if err := s.reloadProgram(r.Context()); err != nil {
		http.Error(w, "Failed to reload program", http.StatusInternalServerError)
		return
	}

	s.mu.RLock()
	response := s.buildResponse()
	s.mu.RUnlock()

	writeJSONResponse(w, response)
}
