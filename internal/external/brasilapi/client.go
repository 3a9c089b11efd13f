package brasilapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/pkg/httputil"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

const maxResponseBytes = 1 << 20

// Client handles communication with BrasilAPI
// ⭐ SSOT: BrasilAPI 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new BrasilAPI client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Holiday is one national holiday
type Holiday struct {
	Date time.Time
	Name string
	Type string
}

type holidayResponse struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
	Type string `json:"type"`
}

// Holidays fetches the national holidays of year
func (c *Client) Holidays(ctx context.Context, year int) ([]Holiday, error) {
	url := fmt.Sprintf("%s/feriados/v1/%d", c.baseURL, year)

	body, err := c.httpClient.GetBytes(ctx, url, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays %d: %w", year, err)
	}

	var raw []holidayResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode holidays %d: %w", year, err)
	}

	holidays := make([]Holiday, 0, len(raw))
	for _, h := range raw {
		date, err := contracts.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		holidays = append(holidays, Holiday{Date: date, Name: h.Name, Type: h.Type})
	}

	c.logger.WithFields(map[string]interface{}{
		"year":  year,
		"count": len(holidays),
	}).Debug("Fetched holidays")
	return holidays, nil
}
