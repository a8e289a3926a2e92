package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ledgerscript/ledger"
)

// ReportSummary is one entry of the report list.
type ReportSummary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Events       []string        `json:"events"`
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
	ExecutedAt   time.Time       `json:"executed_at"`
}

// ReportResponse is a full report with its balances.
type ReportResponse struct {
	*ledger.Report
	Balances []*ledger.Balance `json:"balances"`
	Total    decimal.Decimal   `json:"total"`
}

// handleGetReports handles GET requests to /api/reports.
// Reports are listed newest first.
func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	reports := s.ledger.Reports()
	summaries := make([]ReportSummary, len(reports))
	for i, report := range reports {
		summaries[i] = ReportSummary{
			ID:           report.ID,
			Name:         report.Name,
			Events:       report.Events,
			Transactions: len(report.Transactions),
			Total:        report.Total(),
			ExecutedAt:   report.ExecutedAt,
		}
	}
	writeJSONResponse(w, summaries)
}

// handleGetReport handles GET requests to /api/reports/{id}.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSONResponse(w, &ReportResponse{
		Report:   report,
		Balances: report.Balances(),
		Total:    report.Total(),
	})
}

// handleDownloadReport handles GET requests to /api/reports/{id}/csv.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.csv", report.Name, report.ExecutedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteCSV(w); err != nil {
		s.log.Error().Err(err).Str("report", report.ID).Msg("failed to write report")
	}
}

// handleClearReports handles DELETE requests to /api/reports.
func (s *Server) handleClearReports(w http.ResponseWriter, r *http.Request) {
	cleared := s.ledger.Len()
	s.ledger.Clear()
	writeJSONResponse(w, map[string]int{"cleared": cleared})
}
