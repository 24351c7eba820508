// Package sheets provides an ingest.Sink that appends one row per record to a
// Google Sheets worksheet, mapping record fields onto the header row.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/sheets/v4"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

const defaultWorksheet = "Jobs"

// Config identifies the target worksheet.
type Config struct {
	SpreadsheetID string
	Worksheet     string
}

// Sink appends rows under a header row. Sheets has no uniqueness
// constraint, so the dedup index is the only guard against repeats.
type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string

	mu      sync.Mutex
	headers []string
}

// New reads the header row, writing the canonical columns when the sheet is
// empty. The header must contain job_source and source_id.
func New(ctx context.Context, svc *sheets.Service, cfg Config) (*Sink, error) {
	if svc == nil {
		return nil, fmt.Errorf("sheets service is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	s := &Sink{svc: svc, spreadsheetID: cfg.SpreadsheetID, worksheet: cfg.Worksheet}
	if s.worksheet == "" {
		s.worksheet = defaultWorksheet
	}
	if err := s.loadHeaders(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) rangeOf(cells string) string {
	return "'" + strings.ReplaceAll(s.worksheet, "'", "''") + "'!" + cells
}

func (s *Sink) loadHeaders(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	var headers []string
	if len(resp.Values) > 0 {
		for _, cell := range resp.Values[0] {
			headers = append(headers, strings.TrimSpace(fmt.Sprint(cell)))
		}
	}
	if len(headers) == 0 {
		row := make([]any, len(ingest.Columns))
		for i, col := range ingest.Columns {
			row[i] = col
		}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1"), &sheets.ValueRange{
			Values: [][]any{row},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header row: %w", err)
		}
		headers = append([]string(nil), ingest.Columns...)
	}
	if indexOf(headers, "job_source") < 0 || indexOf(headers, "source_id") < 0 {
		return fmt.Errorf("worksheet %q header lacks job_source or source_id", s.worksheet)
	}
	s.headers = headers
	return nil
}

// Headers returns the worksheet's header row.
func (s *Sink) Headers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headers...)
}

// ListExistingKeys reads the job_source and source_id columns below the
// header.
func (s *Sink) ListExistingKeys(ctx context.Context) ([]ingest.DedupKey, error) {
	headers := s.Headers()
	nameCol := columnLetter(indexOf(headers, "job_source"))
	idCol := columnLetter(indexOf(headers, "source_id"))

	resp, err := s.svc.Spreadsheets.Values.BatchGet(s.spreadsheetID).
		Ranges(s.rangeOf(nameCol+"2:"+nameCol), s.rangeOf(idCol+"2:"+idCol)).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read key columns: %w", err)
	}
	if len(resp.ValueRanges) != 2 {
		return nil, fmt.Errorf("read key columns: got %d ranges", len(resp.ValueRanges))
	}
	names := firstColumn(resp.ValueRanges[0])
	ids := firstColumn(resp.ValueRanges[1])

	var keys []ingest.DedupKey
	for i := 0; i < len(names) && i < len(ids); i++ {
		if key := ingest.NewDedupKey(names[i], ids[i]); key.Valid() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Append writes rec as a new row in header order. Header cells match field
// names case-insensitively, like the key column lookup in New.
func (s *Sink) Append(ctx context.Context, rec ingest.Record) error {
	fields := rec.Fields()
	headers := s.Headers()
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = fields[strings.ToLower(strings.TrimSpace(h))]
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A1"), &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row %s: %w", rec.Key(), err)
	}
	return nil
}

// Close implements ingest.Sink.
func (s *Sink) Close() error { return nil }

func firstColumn(vr *sheets.ValueRange) []string {
	if vr == nil || len(vr.Values) == 0 {
		return nil
	}
	out := make([]string, len(vr.Values[0]))
	for i, cell := range vr.Values[0] {
		out[i] = fmt.Sprint(cell)
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// columnLetter converts a zero-based index to A1 notation (0 = A, 26 = AA).
func columnLetter(i int) string {
	var b []byte
	for i++; i > 0; i = (i - 1) / 26 {
		b = append([]byte{byte('A' + (i-1)%26)}, b...)
	}
	return string(b)
}
