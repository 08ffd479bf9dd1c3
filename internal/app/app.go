// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes one method per
// operational mode:
//
//   - Sample mode: sample query logs, fetch catalog results, persist a group
//   - Launch mode: create a crowdsourcing job and upload task rows
//   - Fetch-results mode: one-shot download and persist of job judgments
//   - Fetch-judgments mode: poll the platform until the job completes
//   - Summarize mode: compare two groups and emit an experiment report
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencatalog/arcs/internal/core/domain"
	apperrors "github.com/opencatalog/arcs/internal/core/errors"
	"github.com/opencatalog/arcs/internal/crowd"
	"github.com/opencatalog/arcs/internal/ingest/logparse"
	"github.com/opencatalog/arcs/internal/ingest/sampling"
	"github.com/opencatalog/arcs/internal/platform/config"
	"github.com/opencatalog/arcs/internal/platform/observability"
	"github.com/opencatalog/arcs/internal/platform/worker"
	"github.com/opencatalog/arcs/internal/ranking"
	"github.com/opencatalog/arcs/internal/search"
	"github.com/opencatalog/arcs/internal/storage"
)

const (
	cutoffLabel5  = "5"
	cutoffLabel10 = "10"

	maxTaskLineSize = 1024 * 1024
)

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *storage.DB
	searcher *search.Client
	crowder  *crowd.Client
	logger   *zerolog.Logger
	out      io.Writer
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	searcher := search.NewClient(search.Config{
		BaseURL:        cfg.SearchBaseURL,
		Timeout:        cfg.SearchTimeout,
		RequestsPerMin: cfg.SearchRPM,
	}, *logger)

	crowder := crowd.NewClient(crowd.Config{
		APIKey:         cfg.CrowdAPIKey,
		BaseURL:        cfg.CrowdBaseURL,
		TemplateJobID:  cfg.CrowdTemplateJobID,
		Timeout:        cfg.CrowdTimeout,
		RequestsPerMin: cfg.CrowdRPM,
	}, *logger)

	return &App{
		cfg:      cfg,
		database: database,
		searcher: searcher,
		crowder:  crowder,
		logger:   logger,
		out:      os.Stdout,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunSample samples (domain, query) pairs from the given query logs, fetches
// catalog results for each pair, persists the result sets as a new group,
// and writes crowdsourcing task rows as JSON lines to tasksPath. Pairs that
// already carry a judgment are bound to the group but excluded from the task
// rows so raters never see them twice.
func (a *App) RunSample(ctx context.Context, logPaths []string, groupName, groupDescription, tasksPath string) error {
	records, err := logparse.ReadFiles(logPaths, *a.logger)
	if err != nil {
		return fmt.Errorf("read query logs: %w", err)
	}

	seed := a.cfg.SampleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sampler := sampling.New(seed, *a.logger)

	sampled := sampler.QueriesByDomain(records, a.cfg.NumDomains, a.cfg.QueriesPerDomain, sampling.Options{
		MinQueryCount: a.cfg.MinQueryCount,
	})

	observability.QueriesSampled.Add(float64(len(sampled)))

	pairs := make([]search.DomainQuery, 0, len(sampled))
	for _, qc := range sampled {
		pairs = append(pairs, search.DomainQuery{Domain: qc.Domain, Query: search.ParseQuery(qc.Query)})
	}

	start := time.Now()

	sets, err := a.searcher.ResultsForPairs(ctx, pairs, a.cfg.NumResults, false)
	if err != nil {
		return fmt.Errorf("fetch catalog results: %w", err)
	}

	observability.SearchRequestDuration.Observe(time.Since(start).Seconds())

	group, err := a.database.InsertGroup(ctx, domain.Group{
		Name:        groupName,
		Description: groupDescription,
		Params: map[string]any{
			"num_domains":        a.cfg.NumDomains,
			"queries_per_domain": a.cfg.QueriesPerDomain,
			"num_results":        a.cfg.NumResults,
			"sample_seed":        strconv.FormatInt(seed, 10),
		},
	})
	if err != nil {
		return err
	}

	data := make([]storage.UnjudgedQuery, 0, len(sets))

	for _, set := range sets {
		uq := storage.UnjudgedQuery{Query: set.Query.String(), Domain: set.Domain}

		for _, res := range set.Results {
			uq.Results = append(uq.Results, storage.UnjudgedResult{ResultID: res.ID, Position: res.Position})
		}

		data = append(data, uq)
	}

	added, redundant, err := a.database.InsertUnjudgedData(ctx, "", group.ID, data)
	if err != nil {
		return err
	}

	if err := a.database.SetGroupRaw(ctx, group.ID, sets); err != nil {
		return err
	}

	rows, err := a.buildTaskRows(ctx, sets)
	if err != nil {
		return err
	}

	if err := writeTaskRows(tasksPath, rows); err != nil {
		return err
	}

	a.logger.Info().
		Str("group_id", group.ID).
		Int("queries", len(sets)).
		Int("new_qrps", added).
		Int("redundant_qrps", redundant).
		Int("task_rows", len(rows)).
		Msg("sampled group collected")

	return nil
}

// buildTaskRows flattens result sets into crowdsourcing task rows, skipping
// pairs that were judged in an earlier round.
func (a *App) buildTaskRows(ctx context.Context, sets []search.ResultSet) ([]crowd.TaskRow, error) {
	judged, err := a.database.FindJudgedQRPs(ctx)
	if err != nil {
		return nil, err
	}

	var rows []crowd.TaskRow

	for _, set := range sets {
		for _, res := range set.Results {
			if _, ok := judged[[2]string{set.Query.String(), res.ID}]; ok {
				continue
			}

			rows = append(rows, crowd.TaskRow{
				Domain:      set.Domain,
				Query:       set.Query.String(),
				Position:    res.Position,
				ResultID:    res.ID,
				Name:        res.Name,
				Link:        res.Link,
				Description: res.Description,
			})
		}
	}

	return rows, nil
}

func writeTaskRows(path string, rows []crowd.TaskRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create task file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write task row: %w", err)
		}
	}

	return f.Close()
}

func readTaskRows(path string) ([]crowd.TaskRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task file: %w", err)
	}
	defer f.Close()

	var rows []crowd.TaskRow

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTaskLineSize)

	for scanner.Scan() {
		var row crowd.TaskRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("parse task row: %w", err)
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	return rows, nil
}

// RunLaunch creates a new crowdsourcing job from the template job, uploads
// the task rows from tasksPath, and records the job.
func (a *App) RunLaunch(ctx context.Context, tasksPath string) error {
	rows, err := readTaskRows(tasksPath)
	if err != nil {
		return err
	}

	start := time.Now()

	job, err := a.crowder.CreateJobFromCopy(ctx)
	if err != nil {
		return err
	}

	observability.CrowdRequestDuration.WithLabelValues("create_job").Observe(time.Since(start).Seconds())

	start = time.Now()

	if err := a.crowder.Upload(ctx, job.ExternalID, rows); err != nil {
		return err
	}

	observability.CrowdRequestDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())

	job, err = a.database.InsertIncompleteJob(ctx, job)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("job_id", job.ID).
		Str("external_id", job.ExternalID).
		Int("task_rows", len(rows)).
		Msg("launched crowdsourcing job")

	return nil
}

// RunFetchResults downloads and persists judgments for a completed job.
// It fails with ErrJobNotCompleted if the platform is still collecting.
func (a *App) RunFetchResults(ctx context.Context, externalJobID string) error {
	return a.fetchAndPersist(ctx, externalJobID)
}

// RunFetchJudgments polls the platform until the job completes, then
// downloads and persists its judgments.
func (a *App) RunFetchJudgments(ctx context.Context, externalJobID string) error {
	loopCtx, done := context.WithCancel(ctx)
	defer done()

	completed := false

	err := worker.Loop(loopCtx, worker.Config{
		Name:         "judgment-fetch",
		PollInterval: a.cfg.FetchPollInterval,
		Logger:       a.logger,
		Process: func(ctx context.Context) error {
			err := a.fetchAndPersist(ctx, externalJobID)
			if errors.Is(err, apperrors.ErrJobNotCompleted) {
				a.logger.Debug().Str("external_id", externalJobID).Msg("job still running")

				return nil
			}

			if err != nil {
				return err
			}

			completed = true

			done()

			return nil
		},
		OnError: func(err error) bool {
			// Platform hiccups are expected over a long poll.
			return !errors.Is(err, context.Canceled)
		},
	})
	if completed {
		return nil
	}

	return err
}

// fetchAndPersist downloads a completed job's judgments and writes them to
// the database. Golden (test-question) units and units without an aggregate
// judgment are skipped.
func (a *App) fetchAndPersist(ctx context.Context, externalJobID string) error {
	job, err := a.crowder.Job(ctx, externalJobID)
	if err != nil {
		return err
	}

	if !job.Completed() {
		return fmt.Errorf("job %s: %w", externalJobID, apperrors.ErrJobNotCompleted)
	}

	start := time.Now()

	units, err := a.crowder.Results(ctx, externalJobID)
	if err != nil {
		return err
	}

	observability.CrowdRequestDuration.WithLabelValues("results").Observe(time.Since(start).Seconds())
	observability.JudgmentsFetched.WithLabelValues(crowd.PlatformName).Add(float64(len(units)))

	if _, err := a.database.UpdateCompletedJob(ctx, externalJobID, job, map[string]any{"units": units}); err != nil {
		return err
	}

	judgedUnits := make([]storage.JudgedUnit, 0, len(units))

	for _, unit := range units {
		if unit.Golden || !unit.Judgment.Valid {
			continue
		}

		judgedUnits = append(judgedUnits, storage.JudgedUnit{
			Query:    unit.Query,
			ResultID: unit.ResultID,
			Judgment: unit.Judgment.Score,
			Gold:     unit.Golden,
		})
	}

	updated, err := a.database.AddJudgments(ctx, judgedUnits)
	if err != nil {
		return err
	}

	observability.JudgmentsPersisted.Add(float64(updated))

	for _, report := range crowd.AnalyzeErrors(units) {
		a.logger.Warn().
			Str("query", report.Query).
			Str("link", report.Link).
			Str("error_type", report.Kind).
			Int("bad_judgments", report.NumBadJudgments).
			Msg("raters flagged result")
	}

	a.logger.Info().
		Str("external_id", externalJobID).
		Int("units", len(units)).
		Int("persisted", updated).
		Msg("fetched job judgments")

	return nil
}

// ExperimentReport is the summarize mode's output document.
type ExperimentReport struct {
	Group1Name string `json:"group1_name"`
	Group2Name string `json:"group2_name"`
	ranking.ExperimentSummary
}

// RunSummarize compares two groups' judged result sets and writes a JSON
// experiment report to standard output.
func (a *App) RunSummarize(ctx context.Context, group1ID, group2ID string) error {
	name1, err := a.database.GroupName(ctx, group1ID)
	if err != nil {
		return err
	}

	name2, err := a.database.GroupName(ctx, group2ID)
	if err != nil {
		return err
	}

	rows1, err := a.database.GroupRows(ctx, group1ID)
	if err != nil {
		return err
	}

	rows2, err := a.database.GroupRows(ctx, group2ID)
	if err != nil {
		return err
	}

	ideals, err := a.database.Ideals(ctx)
	if err != nil {
		return err
	}

	summary, err := ranking.Compare(rows1, rows2, ideals, a.cfg.SignificanceLevel)
	if err != nil {
		return fmt.Errorf("compare groups %s and %s: %w", name1, name2, err)
	}

	recordGroupMetrics(name1, summary.Group1)
	recordGroupMetrics(name2, summary.Group2)

	report := ExperimentReport{
		Group1Name:        name1,
		Group2Name:        name2,
		ExperimentSummary: summary,
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode experiment report: %w", err)
	}

	return nil
}

func recordGroupMetrics(name string, summary ranking.GroupSummary) {
	observability.GroupNDCG.WithLabelValues(name, cutoffLabel5).Set(summary.AvgNDCGAt5)
	observability.GroupNDCG.WithLabelValues(name, cutoffLabel10).Set(summary.AvgNDCGAt10)
	observability.UndefinedNDCGQueries.WithLabelValues(name).Add(float64(summary.NumUndefinedNDCG))
}
