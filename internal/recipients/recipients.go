// Package recipients resolves recipient sources into ordered address
// lists. The dispatch core only ever sees the resolved sequence.
package recipients

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNoRecipients is returned when a source resolves to an empty list.
var ErrNoRecipients = errors.New("no recipients provided")

// ParseList splits a comma-separated manual list into an ordered slice.
// Whitespace around addresses is trimmed, empty items are dropped, and
// duplicates and order are preserved.
func ParseList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		out = append(out, addr)
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// SheetFetcher downloads recipient lists from a Google Sheets document
// via its CSV export, reading the "email" column in row order.
type SheetFetcher struct {
	client  *http.Client
	baseURL string // overridable for tests
}

// NewSheetFetcher creates a fetcher with a sane request timeout.
func NewSheetFetcher() *SheetFetcher {
	return &SheetFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://docs.google.com/spreadsheets/d",
	}
}

// SheetID extracts the spreadsheet id from a shared Google Sheets URL.
func SheetID(sheetURL string) (string, error) {
	_, rest, ok := strings.Cut(sheetURL, "/d/")
	if !ok {
		return "", fmt.Errorf("not a google sheets url: %s", sheetURL)
	}

	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", fmt.Errorf("not a google sheets url: %s", sheetURL)
	}
	return id, nil
}

// Fetch resolves a sheet URL into the ordered contents of its email
// column.
func (f *SheetFetcher) Fetch(ctx context.Context, sheetURL string) ([]string, error) {
	id, err := SheetID(sheetURL)
	if err != nil {
		return nil, err
	}

	csvURL := fmt.Sprintf("%s/%s/export?format=csv", f.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: %s", resp.Status)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoRecipients
	}

	emailCol := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "email") {
			emailCol = i
			break
		}
	}
	if emailCol < 0 {
		return nil, fmt.Errorf("sheet has no email column")
	}

	var out []string
	for _, row := range records[1:] {
		if emailCol >= len(row) {
			continue
		}
		addr := strings.TrimSpace(row[emailCol])
		if addr == "" {
			continue
		}
		out = append(out, addr)
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}
