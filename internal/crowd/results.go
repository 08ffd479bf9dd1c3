package crowd

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/opencatalog/arcs/internal/core/domain"
	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// UnitResult is the judged outcome for one task row: the aggregate judgment
// across raters plus every raw rating, so agreement and error analysis can
// look past the aggregate.
type UnitResult struct {
	Query    string
	ResultID string
	Name     string
	Link     string

	// Judgment is the platform's per-unit aggregate (typically a mean of
	// the raw ratings), absent when no rating was collected.
	Judgment domain.Judgment

	// Ratings are the raw per-rater values, kept as strings exactly as
	// the platform reports them.
	Ratings []string

	// Golden marks platform test questions, which carry known answers and
	// must not enter metric computations.
	Golden bool
}

var resultIDRE = regexp.MustCompile(`[a-z0-9]{4}-[a-z0-9]{4}$`)

// unitLine mirrors one line of the platform's JSON-lines report.
type unitLine struct {
	Data struct {
		Query    string `json:"query"`
		ResultID string `json:"result_fxf"`
		Name     string `json:"name"`
		Link     string `json:"link"`
		Golden   *bool  `json:"_golden"`
	} `json:"data"`
	Results struct {
		Relevance struct {
			Avg *float64 `json:"avg"`
			Res []string `json:"res"`
		} `json:"relevance"`
	} `json:"results"`
	State string `json:"state"`
}

// Results regenerates and downloads a completed job's judgments. The
// platform delivers a zip archive holding a single JSON-lines file with one
// line per task unit.
func (c *Client) Results(ctx context.Context, externalJobID string) ([]UnitResult, error) {
	regenPath := fmt.Sprintf("/jobs/%s/regenerate", url.PathEscape(externalJobID))

	regenParams := url.Values{}
	regenParams.Set("type", "json")

	if _, err := c.do(ctx, http.MethodPost, c.endpoint(regenPath, regenParams), nil, ""); err != nil {
		return nil, fmt.Errorf("regenerate results for job %s: %w", externalJobID, err)
	}

	fetchPath := fmt.Sprintf("/jobs/%s.csv", url.PathEscape(externalJobID))

	fetchParams := url.Values{}
	fetchParams.Set("type", "json")

	payload, err := c.do(ctx, http.MethodGet, c.endpoint(fetchPath, fetchParams), nil, "")
	if err != nil {
		return nil, fmt.Errorf("download results for job %s: %w", externalJobID, err)
	}

	units, err := parseResultsArchive(payload)
	if err != nil {
		return nil, fmt.Errorf("parse results for job %s: %w", externalJobID, err)
	}

	c.log.Info().Str("external_id", externalJobID).Int("units", len(units)).Msg("fetched job results")

	return units, nil
}

func parseResultsArchive(payload []byte) ([]UnitResult, error) {
	archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("open results archive: %w", err)
	}

	if len(archive.File) == 0 {
		return nil, fmt.Errorf("empty results archive: %w", apperrors.ErrUnexpectedStatus)
	}

	f, err := archive.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open archived report: %w", err)
	}
	defer f.Close()

	var units []UnitResult

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var parsed unitLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			return nil, fmt.Errorf("parse report line: %w", err)
		}

		units = append(units, unitFromLine(parsed))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archived report: %w", err)
	}

	return units, nil
}

func unitFromLine(line unitLine) UnitResult {
	unit := UnitResult{
		Query:    line.Data.Query,
		ResultID: line.Data.ResultID,
		Name:     line.Data.Name,
		Link:     line.Data.Link,
		Ratings:  line.Results.Relevance.Res,
	}

	// Old jobs did not always carry the result id on the row.
	if unit.ResultID == "" {
		unit.ResultID = resultIDRE.FindString(line.Data.Link)
	}

	if line.Data.Golden != nil {
		unit.Golden = *line.Data.Golden
	} else {
		state := strings.ToLower(line.State)
		unit.Golden = state == "golden" || state == "hidden_gold"
	}

	if avg := line.Results.Relevance.Avg; avg != nil {
		unit.Judgment = domain.Judged(*avg)
	}

	return unit
}
