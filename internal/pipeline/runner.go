// Package pipeline runs one enrichment pass: scrape, submit a batch, wait
// for it, merge the results and write them in a single bulk insert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amishk599/jobenrich/internal/ai"
	"github.com/amishk599/jobenrich/internal/filter"
	"github.com/amishk599/jobenrich/internal/location"
	"github.com/amishk599/jobenrich/internal/merge"
	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/poller"
	"github.com/amishk599/jobenrich/internal/schema"
	"github.com/amishk599/jobenrich/internal/telemetry"
)

// Deps wires a Runner. Filter, Notifier, Tracker, Archiver and Tracer may be nil.
type Deps struct {
	Scraper       model.ListingScraper
	Searches      []model.SearchParams
	Filter        model.ListingFilter
	Builder       *ai.RequestBuilder
	Batches       ai.BatchAPI
	Poller        *poller.BatchPoller
	Writer        model.RecordWriter
	Schema        schema.Schema
	Table         string
	BatchFilePath string
	Notifier      model.Notifier
	Tracker       model.RunTracker
	Archiver      model.Archiver
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

// Runner executes enrichment runs. A Runner is not safe for concurrent Run
// calls: runs share the request file path.
type Runner struct {
	Deps
	now      func() time.Time
	newRunID func() string
}

// NewRunner returns a Runner for deps.
func NewRunner(deps Deps) *Runner {
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer()
	}
	return &Runner{
		Deps:     deps,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// run carries one invocation's progress between stages.
type run struct {
	summary  model.RunSummary
	listings []model.Listing
	outputID string
	records  []model.Record
}

// Run scrapes, enriches and stores one batch of listings. The returned
// summary is complete even when err is non-nil; err is a *Error.
func (r *Runner) Run(ctx context.Context) (model.RunSummary, error) {
	cur := r.start(ctx)
	r.Logger.Info("enrichment run started", "run_id", cur.summary.RunID, "searches", len(r.Searches))

	err := r.scrape(ctx, cur)
	if err == nil {
		err = r.submit(ctx, cur)
	}
	if err == nil {
		err = r.finish(ctx, cur)
	}
	return r.end(ctx, cur, err)
}

// Resume waits for a batch submitted by an earlier run, then merges and
// stores it against the listings snapshot written at submission.
func (r *Runner) Resume(ctx context.Context, batchID string) (model.RunSummary, error) {
	cur := r.start(ctx)
	cur.summary.BatchID = batchID
	r.Logger.Info("resuming batch", "run_id", cur.summary.RunID, "batch_id", batchID)

	path, err := listingsPath(r.BatchFilePath, batchID)
	if err != nil {
		return r.end(ctx, cur, newError(StageMerge, KindConfig, batchID, err))
	}
	listings, err := readListings(path)
	if err != nil {
		return r.end(ctx, cur, newError(StageMerge, KindConfig, batchID, err))
	}
	cur.listings = listings
	cur.summary.Scraped = len(listings)
	cur.summary.Requested = len(listings)

	return r.end(ctx, cur, r.finish(ctx, cur))
}

func (r *Runner) start(ctx context.Context) *run {
	cur := &run{summary: model.RunSummary{
		RunID:     r.newRunID(),
		Status:    model.RunStatusRunning,
		StartedAt: r.now(),
	}}
	r.track(ctx, cur.summary, "")
	return cur
}

// finish runs the stages after submission: poll, merge, persist.
func (r *Runner) finish(ctx context.Context, cur *run) error {
	if err := r.poll(ctx, cur); err != nil {
		return err
	}
	if err := r.merge(ctx, cur); err != nil {
		return err
	}
	return r.persist(ctx, cur)
}

func (r *Runner) end(ctx context.Context, cur *run, err error) (model.RunSummary, error) {
	s := &cur.summary
	s.FinishedAt = r.now()
	logger := r.Logger.With("run_id", s.RunID)

	if err != nil {
		s.Status = model.RunStatusFailed
		s.ErrorKind = string(KindOf(err))
		if s.ErrorKind == string(KindTimeout) {
			s.Status = model.RunStatusTimedOut
		}
		if id := BatchIDOf(err); id != "" {
			s.BatchID = id
		}
		s.Error = err.Error()
		var pe *Error
		if errors.As(err, &pe) {
			logger.Debug("stage failure stack", "stage", pe.Stage, "stack", string(pe.StackTrace()))
		}
	} else {
		s.Status = model.RunStatusSucceeded
	}

	// The run context may already be cancelled; reporting must still happen.
	reportCtx := context.WithoutCancel(ctx)
	r.track(reportCtx, *s, s.Error)
	if r.Notifier != nil {
		if nerr := r.Notifier.Notify(*s); nerr != nil {
			logger.Error("notification failed", "error", nerr)
		}
	}
	return *s, err
}

func (r *Runner) scrape(ctx context.Context, cur *run) (err error) {
	ctx, span := r.Tracer.Start(ctx, "pipeline.scrape")
	defer func() { endSpan(span, err) }()

	var all []model.Listing
	for _, params := range r.Searches {
		found, err := r.Scraper.Scrape(ctx, params)
		if err != nil {
			return newError(StageScrape, KindTransport, "", fmt.Errorf("scrape %s %q: %w", params.Site, params.SearchTerm, err))
		}
		all = append(all, found...)
	}
	cur.summary.Scraped = len(all)

	seen := make(map[string]struct{}, len(all))
	prepared := make([]model.Listing, 0, len(all))
	for _, l := range all {
		l, err := model.NormalizeListing(l)
		if err != nil {
			r.Logger.Warn("skipping listing", "error", err)
			continue
		}
		if _, dup := seen[l.ID]; dup {
			r.Logger.Debug("skipping duplicate listing", "id", l.ID)
			continue
		}
		seen[l.ID] = struct{}{}
		location.Apply(&l)
		prepared = append(prepared, l)
	}
	prepared = filter.Apply(r.Filter, prepared)

	span.SetAttributes(
		attribute.Int("listings.scraped", len(all)),
		attribute.Int("listings.kept", len(prepared)),
	)
	r.Logger.Info("scrape finished", "run_id", cur.summary.RunID, "scraped", len(all), "kept", len(prepared))

	if len(prepared) == 0 {
		return newError(StageScrape, KindEmptyResult, "", errors.New("no listings found"))
	}
	cur.listings = prepared
	return nil
}

func (r *Runner) submit(ctx context.Context, cur *run) (err error) {
	ctx, span := r.Tracer.Start(ctx, "pipeline.submit")
	defer func() { endSpan(span, err) }()

	reqs, err := r.Builder.BuildRequests(cur.listings)
	if err != nil {
		return newError(StageSubmit, KindConfig, "", err)
	}
	if err := ai.WriteRequestFile(r.BatchFilePath, reqs); err != nil {
		return newError(StageSubmit, KindConfig, "", err)
	}
	cur.summary.Requested = len(reqs)

	fileID, err := r.Batches.UploadFile(ctx, r.BatchFilePath)
	if err != nil {
		return newError(StageSubmit, KindTransport, "", err)
	}
	batch, err := r.Batches.CreateBatch(ctx, fileID, map[string]string{"run_id": cur.summary.RunID})
	if err != nil {
		return newError(StageSubmit, KindTransport, "", err)
	}
	cur.summary.BatchID = batch.ID
	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.Int("batch.requests", len(reqs)),
	)
	r.Logger.Info("batch created", "run_id", cur.summary.RunID, "batch_id", batch.ID, "requests", len(reqs))

	// Only resume needs the snapshot; the run itself can continue without it.
	snapshot, err := listingsPath(r.BatchFilePath, batch.ID)
	if err == nil {
		err = writeListings(snapshot, cur.listings)
	}
	if err != nil {
		r.Logger.Warn("listings snapshot not written", "batch_id", batch.ID, "error", err)
	} else {
		r.archive(ctx, batch.ID, snapshot)
	}
	r.archive(ctx, batch.ID, r.BatchFilePath)

	s := cur.summary
	s.Status = model.RunStatusSubmitted
	r.track(ctx, s, "")
	return nil
}

func (r *Runner) poll(ctx context.Context, cur *run) (err error) {
	batchID := cur.summary.BatchID
	ctx, span := r.Tracer.Start(ctx, "pipeline.poll", trace.WithAttributes(attribute.String("batch.id", batchID)))
	defer func() { endSpan(span, err) }()

	out, err := r.Poller.Wait(ctx, batchID)
	span.SetAttributes(attribute.Int("poll.count", out.Polls), attribute.String("poll.outcome", out.Status.String()))
	if err != nil {
		if ctx.Err() != nil {
			return newError(StagePoll, KindTimeout, batchID, err)
		}
		return newError(StagePoll, KindTransport, batchID, err)
	}
	switch out.Status {
	case poller.TimedOut:
		return newError(StagePoll, KindTimeout, batchID,
			fmt.Errorf("batch %s not finished after %s (%d polls)", batchID, out.Waited, out.Polls))
	case poller.Failed:
		return newError(StagePoll, KindProviderFailed, batchID, fmt.Errorf("batch %s: %s", batchID, out.Reason))
	}
	cur.outputID = out.Ref
	return nil
}

func (r *Runner) merge(ctx context.Context, cur *run) (err error) {
	batchID := cur.summary.BatchID
	ctx, span := r.Tracer.Start(ctx, "pipeline.merge", trace.WithAttributes(attribute.String("batch.id", batchID)))
	defer func() { endSpan(span, err) }()

	content, err := r.Batches.FileContent(ctx, cur.outputID)
	if err != nil {
		return newError(StageMerge, KindTransport, batchID, err)
	}
	resultFile, err := resultsPath(r.BatchFilePath, batchID)
	if err == nil {
		err = os.WriteFile(resultFile, content, 0o644)
	}
	if err != nil {
		r.Logger.Warn("results file not written", "batch_id", batchID, "error", err)
	} else {
		r.archive(ctx, batchID, resultFile)
	}

	results, dropped, err := merge.ParseResults(content, r.Schema, r.Logger)
	if err != nil {
		return newError(StageMerge, KindTransport, batchID, err)
	}
	records, stats := merge.Join(cur.listings, results, r.Schema)
	cur.records = records
	cur.summary.Results = len(results)
	cur.summary.Dropped = dropped

	span.SetAttributes(
		attribute.Int("results.valid", len(results)),
		attribute.Int("results.dropped", dropped),
		attribute.Int("records.joined", stats.Joined),
	)
	r.Logger.Info("results merged",
		"run_id", cur.summary.RunID,
		"batch_id", batchID,
		"results", len(results),
		"dropped", dropped,
		"joined", stats.Joined,
		"incomplete", stats.Incomplete,
		"orphaned", stats.Orphaned,
		"unmatched_listings", stats.Unmatched(),
	)
	return nil
}

func (r *Runner) persist(ctx context.Context, cur *run) (err error) {
	ctx, span := r.Tracer.Start(ctx, "pipeline.persist", trace.WithAttributes(attribute.Int("records", len(cur.records))))
	defer func() { endSpan(span, err) }()

	if err := r.Writer.InsertRecords(ctx, r.Table, r.Schema.Columns(), cur.records); err != nil {
		return newError(StagePersist, KindPersist, cur.summary.BatchID, err)
	}
	cur.summary.Inserted = len(cur.records)
	r.Logger.Info("records stored", "run_id", cur.summary.RunID, "table", r.Table, "records", len(cur.records))
	return nil
}

// archive copies a local batch artifact to object storage. Failures are logged only.
func (r *Runner) archive(ctx context.Context, batchID, path string) {
	if r.Archiver == nil {
		return
	}
	object := batchID + "/" + filepath.Base(path)
	loc, err := r.Archiver.Archive(ctx, object, path)
	if err != nil {
		r.Logger.Warn("artifact archive failed", "batch_id", batchID, "path", path, "error", err)
		return
	}
	r.Logger.Debug("artifact archived", "batch_id", batchID, "location", loc)
}

// track records run state. Failures are logged only.
func (r *Runner) track(ctx context.Context, s model.RunSummary, detail string) {
	if r.Tracker == nil {
		return
	}
	state := model.RunState{
		RunID:     s.RunID,
		BatchID:   s.BatchID,
		Status:    s.Status,
		Detail:    detail,
		StartedAt: s.StartedAt,
		UpdatedAt: r.now(),
	}
	if err := r.Tracker.Record(ctx, state); err != nil {
		r.Logger.Warn("run state not recorded", "run_id", s.RunID, "status", s.Status, "error", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
