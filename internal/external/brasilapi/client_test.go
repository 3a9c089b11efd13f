package brasilapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/pkg/httputil"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

const holidays2025 = `[
  {"date":"2025-01-01","name":"Confraternização mundial","type":"national"},
  {"date":"2025-04-18","name":"Sexta-feira Santa","type":"national"},
  {"date":"2025-11-20","name":"Dia da consciência negra","type":"national"}
]`

func TestHolidays(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(holidays2025))
	}))
	defer srv.Close()

	c := NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL+"/api/", logger.Nop())
	got, err := c.Holidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "/api/feriados/v1/2025", gotPath)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-04-18", got[1].Date.Format(contracts.DateLayout))
	assert.Equal(t, "Sexta-feira Santa", got[1].Name)
	assert.Equal(t, "national", got[1].Type)
}

func TestHolidays_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, "", "unexpected status 500"},
		{"bad json", http.StatusOK, "{", "decode holidays"},
		{"bad date", http.StatusOK, `[{"date":"18/04/2025","name":"x"}]`, "holiday \"x\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL, logger.Nop())
			_, err := c.Holidays(context.Background(), 2025)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
