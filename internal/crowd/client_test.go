package crowd

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		TemplateJobID:  788107,
		RequestsPerMin: 6000,
	}, zerolog.Nop())
}

func TestCreateJobFromCopy(t *testing.T) {
	var gotPath, gotGold, gotKey string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGold = r.URL.Query().Get("gold")
		gotKey = r.URL.Query().Get("key")

		_, _ = w.Write([]byte(`{"id": 900001, "created_at": "2016-02-12T19:05:06+00:00", "completed_at": null, "title": "relevance"}`))
	}))

	job, err := client.CreateJobFromCopy(context.Background())
	if err != nil {
		t.Fatalf("CreateJobFromCopy() error = %v", err)
	}

	if gotPath != "/jobs/788107/copy.json" {
		t.Errorf("path = %q, want /jobs/788107/copy.json", gotPath)
	}

	if gotGold != "true" {
		t.Errorf("gold = %q, want true", gotGold)
	}

	if gotKey != "test-key" {
		t.Errorf("key = %q, want test-key", gotKey)
	}

	if job.ExternalID != "900001" {
		t.Errorf("ExternalID = %q, want 900001", job.ExternalID)
	}

	if job.Platform != PlatformName {
		t.Errorf("Platform = %q, want %q", job.Platform, PlatformName)
	}

	want := time.Date(2016, time.February, 12, 19, 5, 6, 0, time.UTC)
	if !job.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", job.CreatedAt, want)
	}

	if job.Completed() {
		t.Error("new job reports completed")
	}

	if job.Metadata["title"] != "relevance" {
		t.Errorf("Metadata[title] = %v, want relevance", job.Metadata["title"])
	}
}

func TestJobCompleted(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 900001, "created_at": "2016-02-12T19:05:06Z", "completed_at": "2016-02-14T08:00:00Z"}`))
	}))

	job, err := client.Job(context.Background(), "900001")
	if err != nil {
		t.Fatalf("Job() error = %v", err)
	}

	if !job.Completed() {
		t.Error("completed job reports not completed")
	}
}

func TestUpload(t *testing.T) {
	var (
		gotPath        string
		gotForce       string
		gotContentType string
		gotBody        []byte
	)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotForce = r.URL.Query().Get("force")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		_, _ = w.Write([]byte(`{}`))
	}))

	rows := []TaskRow{
		{Domain: "data.example.gov", Query: "crime", Position: 0, ResultID: "aaaa-1111", Name: "Crime Reports", Link: "https://example.gov/d/aaaa-1111"},
		{Domain: "data.example.gov", Query: "crime", Position: 1, ResultID: "bbbb-2222", Name: "Arrests", Link: "https://example.gov/d/bbbb-2222"},
	}

	if err := client.Upload(context.Background(), "900001", rows); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotPath != "/jobs/900001/upload.json" {
		t.Errorf("path = %q, want /jobs/900001/upload.json", gotPath)
	}

	if gotForce != "true" {
		t.Errorf("force = %q, want true", gotForce)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", gotContentType)
	}

	var lines []TaskRow

	scanner := bufio.NewScanner(bytes.NewReader(gotBody))
	for scanner.Scan() {
		var row TaskRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("unmarshal uploaded line: %v", err)
		}

		lines = append(lines, row)
	}

	if len(lines) != 2 {
		t.Fatalf("uploaded %d lines, want 2", len(lines))
	}

	if lines[1].ResultID != "bbbb-2222" {
		t.Errorf("lines[1].ResultID = %q, want bbbb-2222", lines[1].ResultID)
	}
}

func TestUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))

	_, err := client.Job(context.Background(), "900001")
	if !errors.Is(err, apperrors.ErrUnexpectedStatus) {
		t.Errorf("Job() error = %v, want ErrUnexpectedStatus", err)
	}
}

const reportLines = `{"data": {"query": "crime", "result_fxf": "aaaa-1111", "name": "Crime Reports", "link": "https://example.gov/d/aaaa-1111"}, "results": {"relevance": {"avg": 2.3333, "res": ["2", "3", "2"]}}, "state": "finalized"}
{"data": {"query": "crime", "name": "Old Row", "link": "https://example.gov/d/bbbb-2222"}, "results": {"relevance": {"avg": 0, "res": ["0", "0", "1"]}}, "state": "finalized"}
{"data": {"query": "parks", "result_fxf": "cccc-3333", "name": "Gold Row", "link": "https://example.gov/d/cccc-3333", "_golden": true}, "results": {"relevance": {"avg": 3, "res": ["3", "3"]}}, "state": "golden"}
{"data": {"query": "parks", "result_fxf": "dddd-4444", "name": "Unrated", "link": "https://example.gov/d/dddd-4444"}, "results": {"relevance": {"res": []}}, "state": "judgable"}
`

func zippedReport(t *testing.T, contents string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	f, err := zw.Create("job_900001.json")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Write([]byte(contents)); err != nil {
		t.Fatal(err)
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestResults(t *testing.T) {
	var regenerated bool

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs/900001/regenerate":
			regenerated = true
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/900001.csv":
			if r.URL.Query().Get("type") != "json" {
				t.Errorf("type = %q, want json", r.URL.Query().Get("type"))
			}

			_, _ = w.Write(zippedReport(t, reportLines))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	units, err := client.Results(context.Background(), "900001")
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}

	if !regenerated {
		t.Error("Results() skipped regeneration")
	}

	if len(units) != 4 {
		t.Fatalf("Results() returned %d units, want 4", len(units))
	}

	first := units[0]
	if first.ResultID != "aaaa-1111" || !first.Judgment.Valid || first.Judgment.Score != 2.3333 {
		t.Errorf("units[0] = %+v, want aaaa-1111 judged 2.3333", first)
	}

	if got := units[1].ResultID; got != "bbbb-2222" {
		t.Errorf("units[1].ResultID = %q, want bbbb-2222 parsed from link", got)
	}

	if !units[2].Golden {
		t.Error("units[2].Golden = false, want true")
	}

	if units[3].Judgment.Valid {
		t.Error("unrated unit carries a judgment")
	}
}

func TestResultsBadArchive(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a zip"))
	}))

	if _, err := client.Results(context.Background(), "900001"); err == nil {
		t.Error("Results() error = nil, want archive error")
	}
}
