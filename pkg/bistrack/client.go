package bistrack

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client downloads BisTrack report exports over HTTP. The branch server
// publishes the "Orders Due" report at a fixed URL behind basic auth; the
// tracker pulls it into the export directory before each scan.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchExport downloads the current export into exportDir and returns the
// written file path. The file name carries a timestamp so consecutive pulls
// never clobber each other.
func (c *Client) FetchExport(exportDir string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build export request: %w", err)
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export fetch returned status %d", resp.StatusCode)
	}

	ext := ".html"
	if ct := resp.Header.Get("Content-Type"); ct == "text/csv" || ct == "application/csv" {
		ext = ".csv"
	}

	path := filepath.Join(exportDir, fmt.Sprintf("orders_due_%s%s", time.Now().Format("20060102_150405"), ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
