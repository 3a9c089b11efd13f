package b3

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/pkg/httputil"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// MaxArchiveBytes bounds one daily archive download
const MaxArchiveBytes = 64 << 20

// Client downloads daily COTAHIST archives from B3
// ⭐ SSOT: B3 시세 파일 다운로드는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new B3 client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// DailyURL is the archive location for one trading day
func (c *Client) DailyURL(day time.Time) string {
	return fmt.Sprintf("%s/COTAHIST_D%s.ZIP", c.baseURL, day.Format("02012006"))
}

// FetchDay downloads and parses the daily archive of day.
// A missing archive (non-trading day, not yet published) wraps contracts.ErrNotFound.
func (c *Client) FetchDay(ctx context.Context, day time.Time) ([]contracts.QuoteRecord, error) {
	url := c.DailyURL(day)

	data, err := c.httpClient.GetBytes(ctx, url, MaxArchiveBytes)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, fmt.Errorf("daily file %s: %w", day.Format(contracts.DateLayout), contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("download daily file: %w", err)
	}

	quotes, err := ParseArchive(data)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"date":  day.Format(contracts.DateLayout),
		"count": len(quotes),
	}).Info("Fetched B3 daily quotes")
	return quotes, nil
}

// ParseArchive parses the first .TXT entry of a COTAHIST ZIP held in memory
func ParseArchive(data []byte) ([]contracts.QuoteRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		if !strings.HasSuffix(strings.ToUpper(f.Name), ".TXT") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return Parse(rc)
	}
	return nil, fmt.Errorf("no .TXT file in archive (entries: %v)", names)
}
