package eventide

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	Et "github.com/maroda/eventide/types"
)

const (
	webTimeout = 10 * time.Second

	// maxLineBytes bounds a single JSON line in a delivery stream
	maxLineBytes = 1024 * 1024
)

type HTTPClient interface {
	Get(string) (*http.Response, error)
}

// Shared HTTP Client
var sharedHTTPClient = &http.Client{
	Timeout: webTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	},
}

// SingleFetchWithClient handles the messy business of the HTTP connection
// and is testable with dependency injection, called by FetchDeliveries
func SingleFetchWithClient(url string, c HTTPClient) (int, []byte, error) {
	resp, err := c.Get(url)
	if err != nil {
		slog.Error("Fetch Error", slog.Any("Error", err))
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Close Error", slog.Any("Error", err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Could not read body", slog.Any("Error", err))
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// FetchDeliveries polls an upstream source for a JSON array of deliveries.
// This uses a Shared HTTP Client:
// - to reuse existing endpoint connections
// - to avoid stale connections that eat up OS FDs
func FetchDeliveries(url string) ([]Et.Delivery, error) {
	return FetchDeliveriesWithClient(url, sharedHTTPClient)
}

func FetchDeliveriesWithClient(url string, c HTTPClient) ([]Et.Delivery, error) {
	code, body, err := SingleFetchWithClient(url, c)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("source %s returned status %d", url, code)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []Et.Delivery{}, nil
	}

	batch := make([]Et.Delivery, 0)
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decode deliveries from %s: %w", url, err)
	}
	return batch, nil
}

// ParseDeliveryLines reads one JSON delivery per line,
// skipping whitespace, comments and lines that do not decode
func ParseDeliveryLines(reader io.Reader) ([]Et.Delivery, error) {
	batch := make([]Et.Delivery, 0)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// ignore whitespace and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var d Et.Delivery
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			slog.Error("WARNING: Invalid line",
				slog.Int("line", lineNo),
				slog.Any("Error", err))
			continue
		}
		batch = append(batch, d)
	}

	if err := scanner.Err(); err != nil {
		slog.Error("Problem scanning input", slog.Any("Error", err))
		return nil, fmt.Errorf("scanning error: %w", err)
	}

	return batch, nil
}
