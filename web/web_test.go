package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/ledgerscript/library"
)

const feeProgram = `x = 100
createTransaction("2024-01-31", "2024-01-31", "Fee", x / 4)
print("fee", x / 4)
`

func newTestServer(t *testing.T, source string) (*Server, *http.ServeMux) {
	t.Helper()

	var file string
	if source != "" {
		file = filepath.Join(t.TempDir(), "program.dsl")
		assert.NoError(t, os.WriteFile(file, []byte(source), 0o600))
	}

	server := New(8080, file, library.Default())
	if file != "" {
		assert.NoError(t, server.reloadProgram(context.Background()))
	}
	mux, err := server.setupRouter()
	assert.NoError(t, err)
	return server, mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestAPIVersion(t *testing.T) {
	server, mux := newTestServer(t, "")
	server.Version = "1.2.3"
	server.CommitSHA = "abc123"

	rec := serve(mux, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	response := decode[map[string]string](t, rec)
	assert.Equal(t, "1.2.3", response["version"])
	assert.Equal(t, "abc123", response["commit_sha"])
}

func TestAPISource(t *testing.T) {
	server, mux := newTestServer(t, feeProgram)

	t.Run("Get", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/source", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		response := decode[SourceResponse](t, rec)
		assert.Equal(t, feeProgram, response.Source)
		assert.Equal(t, server.programFile, response.Filepath)
		assert.Equal(t, 0, len(response.Errors))
	})

	t.Run("PutReportsParseErrors", func(t *testing.T) {
		rec := serve(mux, http.MethodPut, "/api/source", `{"source": "x = (1 +\n"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[SourceResponse](t, rec)
		assert.Equal(t, "x = (1 +\n", response.Source)
		assert.Equal(t, 1, len(response.Errors))
		assert.NotZero(t, response.Errors[0].Position)

		content, err := os.ReadFile(server.programFile)
		assert.NoError(t, err)
		assert.Equal(t, "x = (1 +\n", string(content))
	})

	t.Run("PutValid", func(t *testing.T) {
		rec := serve(mux, http.MethodPut, "/api/source", `{"source": "y = 2\n"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[SourceResponse](t, rec)
		assert.Equal(t, 0, len(response.Errors))

		server.mu.RLock()
		defer server.mu.RUnlock()
		assert.NotZero(t, server.program)
		assert.NoError(t, server.programErr)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		rec := serve(mux, http.MethodPut, "/api/source", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPISourceWithoutFile(t *testing.T) {
	_, mux := newTestServer(t, "")

	rec := serve(mux, http.MethodGet, "/api/source", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, http.MethodPut, "/api/source", `{"source": "x = 1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadOnlyMode(t *testing.T) {
	server, mux := newTestServer(t, feeProgram)
	server.ReadOnly = true

	rec := serve(mux, http.MethodPut, "/api/source", `{"source": "x = 1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	content, err := os.ReadFile(server.programFile)
	assert.NoError(t, err)
	assert.Equal(t, feeProgram, string(content))

	rec = serve(mux, http.MethodPost, "/api/run", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIValidate(t *testing.T) {
	_, mux := newTestServer(t, "")

	tests := []struct {
		name       string
		code       string
		valid      bool
		statements int
		events     []string
	}{
		{"Valid", "x = 1\ny = x + 1\n", true, 2, []string{}},
		{"EventReferences", "net = SALE.amount * 0.9\nfee = FEE.amount + SALE.amount\n", true, 2, []string{"FEE", "SALE"}},
		{"ParseError", "x = (1 +\n", false, 0, []string{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]string{"code": test.code})
			assert.NoError(t, err)

			rec := serve(mux, http.MethodPost, "/api/validate", string(body))
			assert.Equal(t, http.StatusOK, rec.Code)

			response := decode[ValidateResponse](t, rec)
			assert.Equal(t, test.valid, response.Valid)
			assert.Equal(t, test.statements, response.Statements)
			assert.Equal(t, test.events, response.Events)
			assert.Equal(t, !test.valid, len(response.Errors) > 0)
		})
	}

	t.Run("NoProgram", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/api/validate", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPIRun(t *testing.T) {
	_, mux := newTestServer(t, feeProgram)

	t.Run("ServedProgram", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/api/run", `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[RunResponse](t, rec)
		assert.True(t, response.Success)
		assert.Equal(t, "standalone", response.Mode)
		assert.Equal(t, 1, response.RowCount)
		assert.Equal(t, []string{"fee 25"}, response.Result.Prints)
		assert.Equal(t, 1, len(response.Result.Transactions))
		assert.Equal(t, 25.0, response.Result.Transactions[0].Amount)
		assert.Equal(t, "STANDALONE", response.Result.Transactions[0].InstrumentID)
	})

	t.Run("Rows", func(t *testing.T) {
		body := `{
			"code": "createTransaction(postingdate, effectivedate, 'Fee', amount * 0.01)",
			"rows": [
				{"postingdate": "2024-01-31", "effectivedate": "2024-01-31", "instrumentid": "LOAN-1", "amount": 1000},
				{"postingdate": "2024-01-31", "effectivedate": "2024-01-31", "instrumentid": "LOAN-2", "amount": 2500}
			],
			"posting_date": "2024-02-29"
		}`
		rec := serve(mux, http.MethodPost, "/api/run", body)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[RunResponse](t, rec)
		assert.True(t, response.Success)
		assert.Equal(t, "rows", response.Mode)
		assert.Equal(t, 2, response.RowCount)
		assert.Equal(t, 2, len(response.Result.Transactions))
		assert.Equal(t, "LOAN-2", response.Result.Transactions[1].InstrumentID)
		assert.Equal(t, "2024-02-29", response.Result.Transactions[1].PostingDate)
		assert.Equal(t, 25.0, response.Result.Transactions[1].Amount)
	})

	t.Run("Events", func(t *testing.T) {
		body := `{
			"code": "createTransaction(SALE.postingdate, SALE.effectivedate, 'Revenue', SALE.amount)",
			"events": {
				"SALE": [
					{"postingdate": "2024-01-15", "effectivedate": "2024-01-15", "instrumentid": "C-1", "amount": 40},
					{"postingdate": "2024-01-31", "effectivedate": "2024-01-31", "instrumentid": "C-1", "amount": 60}
				]
			}
		}`
		rec := serve(mux, http.MethodPost, "/api/run", body)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[RunResponse](t, rec)
		assert.True(t, response.Success)
		assert.Equal(t, 1, response.RowCount)
		assert.Equal(t, 1, len(response.Result.Transactions))
		assert.Equal(t, "2024-01-31", response.Result.Transactions[0].PostingDate)
		assert.Equal(t, 60.0, response.Result.Transactions[0].Amount)
	})

	t.Run("StatementError", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/api/run", `{"code": "y = missing"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[RunResponse](t, rec)
		assert.False(t, response.Success)
		assert.Equal(t, 1, len(response.Errors))
		assert.Equal(t, "name 'missing' is not defined", response.Errors[0].Message)
		assert.Equal(t, any("missing"), response.Errors[0].Details["statement"])
	})

	t.Run("ParseError", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/api/run", `{"code": "x = (1 +"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decode[RunResponse](t, rec)
		assert.False(t, response.Success)
		assert.Zero(t, response.Result)
		assert.Equal(t, 1, len(response.Errors))
	})

	t.Run("BadRequests", func(t *testing.T) {
		for _, body := range []string{
			"{",
			`{"rows": {"not": "a list"}}`,
			`{"posting_date": "someday"}`,
		} {
			rec := serve(mux, http.MethodPost, "/api/run", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})
}

func TestAPIFunctions(t *testing.T) {
	_, mux := newTestServer(t, "")

	t.Run("All", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/functions", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Categories []string       `json:"categories"`
			Functions  []FunctionInfo `json:"functions"`
		}
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "Financial", response.Categories[0])
		assert.Equal(t, library.Default().Len(), len(response.Functions))
	})

	t.Run("Category", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/functions?category=Date", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Functions []FunctionInfo `json:"functions"`
		}
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.True(t, len(response.Functions) > 0)
		for _, fn := range response.Functions {
			assert.Equal(t, "Date", fn.Category)
		}
	})
}

func TestAPITemplates(t *testing.T) {
	_, mux := newTestServer(t, "")

	t.Run("List", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/templates", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		templates := decode[[]TemplateInfo](t, rec)
		assert.Equal(t, 6, len(templates))
	})

	t.Run("Get", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/templates/revenue", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		template := decode[TemplateInfo](t, rec)
		assert.Equal(t, "revenue", template.Name)
		assert.True(t, len(template.Columns) > 0)
		assert.Contains(t, template.Program, "generate_schedules")
	})

	t.Run("Unknown", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/templates/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBroadcast(t *testing.T) {
	server, _ := newTestServer(t, "")

	client := make(chan string, 1)
	server.sseMu.Lock()
	server.sseClients[client] = struct{}{}
	server.sseMu.Unlock()

	server.broadcast("reload")
	assert.Equal(t, "reload", <-client)

	// A full client buffer drops the event instead of blocking.
	client <- "pending"
	server.broadcast("reload")
	assert.Equal(t, "pending", <-client)
}

func TestAPIReports(t *testing.T) {
	server, mux := newTestServer(t, feeProgram)

	rec := serve(mux, http.MethodPost, "/api/run", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	run := decode[RunResponse](t, rec)
	assert.NotEqual(t, "", run.ReportID)

	t.Run("FailedRunsAreNotRecorded", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/api/run", `{"code": "y = missing"}`)
		response := decode[RunResponse](t, rec)
		assert.Equal(t, "", response.ReportID)
		assert.Equal(t, 1, server.ledger.Len())
	})

	t.Run("List", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/reports", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		reports := decode[[]ReportSummary](t, rec)
		assert.Equal(t, 1, len(reports))
		assert.Equal(t, "program.dsl", reports[0].Name)
		assert.Equal(t, 1, reports[0].Transactions)
		assert.Equal(t, "25", reports[0].Total.String())
	})

	t.Run("Get", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/reports/"+run.ReportID, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var report struct {
			ID       string `json:"id"`
			Balances []struct {
				InstrumentID    string `json:"instrumentid"`
				TransactionType string `json:"transactiontype"`
				Count           int    `json:"count"`
			} `json:"balances"`
		}
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Equal(t, run.ReportID, report.ID)
		assert.Equal(t, 1, len(report.Balances))
		assert.Equal(t, "STANDALONE", report.Balances[0].InstrumentID)
		assert.Equal(t, "Fee", report.Balances[0].TransactionType)
	})

	t.Run("DownloadCSV", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/reports/"+run.ReportID+"/csv", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions_program.dsl_")
		assert.Equal(t,
			"postingdate,effectivedate,instrumentid,subinstrumentid,transactiontype,amount\n"+
				"2024-01-31,2024-01-31,STANDALONE,1,Fee,25\n",
			rec.Body.String())
	})

	t.Run("Unknown", func(t *testing.T) {
		rec := serve(mux, http.MethodGet, "/api/reports/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Clear", func(t *testing.T) {
		rec := serve(mux, http.MethodDelete, "/api/reports", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]int{"cleared": 1}, decode[map[string]int](t, rec))
		assert.Equal(t, 0, server.ledger.Len())
	})
}
