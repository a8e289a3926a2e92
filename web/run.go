package web

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/errors"
	"github.com/robinvdvleuten/ledgerscript/loader"
	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/program"
	"github.com/robinvdvleuten/ledgerscript/value"
)

const requestFilename = "request.dsl"

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	// Code is the program text. When empty the served program file runs.
	Code string `json:"code"`
	// Name labels the transaction report. It defaults to the program file
	// name, or "request" for inline code.
	Name string `json:"name,omitempty"`
	// Rows is a JSON array of data row objects.
	Rows json.RawMessage `json:"rows,omitempty"`
	// Events maps event names to arrays of event rows. They are merged into
	// one row per instrument and run after Rows.
	Events          map[string]json.RawMessage `json:"events,omitempty"`
	PostingDate     string                     `json:"posting_date,omitempty"`
	InstrumentID    string                     `json:"instrument_id,omitempty"`
	ContinueOnError bool                       `json:"continue_on_error,omitempty"`
}

// RunResponse is the JSON response of POST /api/run.
type RunResponse struct {
	Success  bool               `json:"success"`
	Mode     string             `json:"mode"`
	RowCount int                `json:"row_count"`
	Result   *program.Result    `json:"result,omitempty"`
	ReportID string             `json:"report_id,omitempty"`
	Errors   []errors.ErrorJSON `json:"errors"`
}

// ValidateResponse is the JSON response of POST /api/validate.
type ValidateResponse struct {
	Valid      bool               `json:"valid"`
	Statements int                `json:"statements"`
	Events     []string           `json:"events"`
	Errors     []errors.ErrorJSON `json:"errors"`
}

var errNoProgram = stderrors.New("no code given and no program file configured")

// requestProgram parses code, or returns the served program when code is
// empty.
func (s *Server) requestProgram(ctx context.Context, code string) (*program.Program, error) {
	if code != "" {
		return program.Parse(ctx, requestFilename, []byte(code))
	}
	if s.programFile == "" {
		return nil, errNoProgram
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.program, s.programErr
}

// handleValidate handles POST requests to /api/validate.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prog, parseErr := s.requestProgram(r.Context(), request.Code)
	if stderrors.Is(parseErr, errNoProgram) {
		http.Error(w, parseErr.Error(), http.StatusBadRequest)
		return
	}

	response := &ValidateResponse{Valid: parseErr == nil, Events: []string{}, Errors: errorList(parseErr)}
	if prog != nil {
		response.Statements = len(prog.Statements())
		response.Events = append(response.Events, referencedEvents(prog)...)
	}
	writeJSONResponse(w, response)
}

// handleRun handles POST requests to /api/run.
// A program that fails to parse or run is reported with success false; a
// malformed request is a 400.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var request RunRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rows, err := requestRows(&request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := runOptions(&request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prog, parseErr := s.requestProgram(r.Context(), request.Code)
	if stderrors.Is(parseErr, errNoProgram) {
		http.Error(w, parseErr.Error(), http.StatusBadRequest)
		return
	}

	response := &RunResponse{Mode: "standalone", RowCount: 1}
	if len(rows) > 0 {
		response.Mode = "rows"
		response.RowCount = len(rows)
	}
	if parseErr != nil {
		response.Errors = errorList(parseErr)
		writeJSONResponse(w, response)
		return
	}

	ctx := logger.WithContext(r.Context(), s.log)
	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}

	result, runErr := program.NewRunner(s.registry, opts...).Run(ctx, prog, rows)
	s.log.Debug().
		Str("mode", response.Mode).
		Int("rows", len(rows)).
		Bool("success", runErr == nil).
		Msg("run request")

	response.Success = runErr == nil
	response.Result = result
	response.Errors = errorList(runErr)
	if runErr == nil && result != nil {
		report := s.ledger.Record(ctx, s.reportName(&request), referencedEvents(prog), result.Transactions)
		response.ReportID = report.ID
	}
	writeJSONResponse(w, response)
}

func (s *Server) reportName(request *RunRequest) string {
	switch {
	case request.Name != "":
		return request.Name
	case request.Code == "":
		return filepath.Base(s.programFile)
	}
	return "request"
}

func runOptions(request *RunRequest) ([]program.Option, error) {
	var opts []program.Option
	if request.PostingDate != "" {
		date := dates.Normalize(request.PostingDate)
		if date == "" {
			return nil, fmt.Errorf("invalid posting_date %q", request.PostingDate)
		}
		opts = append(opts, program.WithPostingDate(date))
	}
	if request.InstrumentID != "" {
		opts = append(opts, program.WithInstrumentID(request.InstrumentID))
	}
	if request.ContinueOnError {
		opts = append(opts, program.WithContinueOnError())
	}
	return opts, nil
}

// requestRows decodes the data rows and merged event rows of a request.
func requestRows(request *RunRequest) ([]*value.Dict, error) {
	var rows []*value.Dict
	if present(request.Rows) {
		parsed, err := loader.ParseData("rows.json", request.Rows)
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		rows = parsed
	}

	if len(request.Events) > 0 {
		events := make(map[string][]*value.Dict, len(request.Events))
		for name, raw := range request.Events {
			if !present(raw) {
				continue
			}
			parsed, err := loader.ParseData(name+".json", raw)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", name, err)
			}
			events[name] = parsed
		}
		rows = append(rows, program.MergeEvents(events)...)
	}
	return rows, nil
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// referencedEvents lists the events a program reads, by the EVENT.field
// references in its source and by its declared events.
func referencedEvents(prog *program.Program) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range prog.EventNames() {
		add(name)
	}
	if prog.AST != nil {
		refs := maps.Values(prog.AST.EventRefs)
		slices.Sort(refs)
		for _, dotted := range refs {
			event, _, _ := strings.Cut(dotted, ".")
			add(event)
		}
	}
	return names
}
