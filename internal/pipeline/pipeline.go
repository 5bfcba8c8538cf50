// Package pipeline drives the search -> frontier -> property ->
// persist loop for one target city.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"madlan-crawler/internal/browser"
	"madlan-crawler/internal/config"
	"madlan-crawler/internal/extract"
	"madlan-crawler/internal/frontier"
	"madlan-crawler/internal/governor"
	"madlan-crawler/internal/models"
	"madlan-crawler/internal/repository"
	"madlan-crawler/internal/storage"
)

// When this many fetches fail in a row the orchestrator pauses
// between batches to let the remote cool off.
const (
	failureStreakThreshold = 5
	failureStreakPause     = 30 * time.Second
)

// Pipeline owns one city's crawl loop.
type Pipeline struct {
	cfg      *config.Config
	db       storage.DB
	frontier *frontier.Frontier
	gov      *governor.Governor
	browsers browser.Factory

	// persistMu funnels property persists through a single writer on
	// top of the storage transactions, so manual id assignment never
	// races across workers.
	persistMu sync.Mutex

	sessionMu sync.Mutex
	shared    browser.Browser

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// RunReport summarizes one completed run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	City        string        `json:"city"`
	PagesSeeded int           `json:"pages_seeded"`
	Enqueued    int           `json:"enqueued"`
	Processed   int           `json:"processed"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// New wires a pipeline from its collaborators.
func New(cfg *config.Config, db storage.DB, fr *frontier.Frontier, gov *governor.Governor, browsers browser.Factory) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		db:       db,
		frontier: fr,
		gov:      gov,
		browsers: browsers,
	}
}

// Run loops Seeding and Draining until pagination is exhausted and
// the frontier has no unprocessed entries, the target property count
// is reached, or ctx is cancelled. Cancellation is cooperative:
// in-flight cycles finish or time out, and any entry not yet marked
// processed stays queued for the next run.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.New().String()
	city := p.cfg.City
	start := time.Now()
	report := &RunReport{RunID: runID, City: city}

	// Counters are per run; the scheduler reuses one Pipeline across
	// daily runs.
	p.processed.Store(0)
	p.succeeded.Store(0)
	p.failed.Store(0)

	log.Info().Str("run_id", runID).Str("city", city).Msg("pipeline starting")
	defer p.closeSharedSession()

	stats, err := p.frontier.Stats(ctx, city)
	if err != nil {
		return nil, err
	}
	searchPage := stats.LastPage
	paginationDone := searchPage >= p.cfg.Crawler.SearchPageLimit

	for {
		if ctx.Err() != nil {
			break
		}
		if p.targetReached() {
			log.Info().Str("run_id", runID).Int("target", p.cfg.MaxProperties).
				Msg("target property count reached")
			break
		}

		batch, err := p.frontier.NextUnprocessedBatch(ctx, city, p.cfg.Crawler.BatchSize)
		if err != nil {
			return nil, err
		}

		if len(batch) == 0 {
			if paginationDone {
				log.Info().Str("run_id", runID).Str("city", city).Msg("frontier exhausted")
				break
			}
			searchPage++
			enqueued, hasNext, err := p.seed(ctx, searchPage)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break
				}
				log.Error().Err(err).Int("page", searchPage).Msg("seeding failed")
				paginationDone = true
				continue
			}
			report.PagesSeeded++
			report.Enqueued += enqueued
			if !hasNext || searchPage >= p.cfg.Crawler.SearchPageLimit {
				paginationDone = true
			}
			continue
		}

		if err := p.drain(ctx, batch); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			// Only frontier/storage write failures escape drain; the
			// run cannot make trustworthy progress past them.
			log.Error().Err(err).Str("run_id", runID).Msg("draining aborted")
			return nil, err
		}

		if streak := p.gov.FailureStreak(); streak >= failureStreakThreshold {
			log.Warn().Int("failure_streak", streak).Dur("pause", failureStreakPause).
				Msg("consecutive failures, pausing between batches")
			select {
			case <-ctx.Done():
			case <-time.After(failureStreakPause):
			}
		}
	}

	report.Processed = int(p.processed.Load())
	report.Succeeded = int(p.succeeded.Load())
	report.Failed = int(p.failed.Load())
	report.Duration = time.Since(start)

	log.Info().Str("run_id", runID).Str("city", city).
		Int("pages_seeded", report.PagesSeeded).Int("enqueued", report.Enqueued).
		Int("processed", report.Processed).Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).Dur("duration", report.Duration).
		Msg("pipeline finished")

	return report, nil
}

// seed fetches one search-results page, enqueues the new property
// URLs it links, and reports whether pagination continues.
func (p *Pipeline) seed(ctx context.Context, page int) (enqueued int, hasNext bool, err error) {
	if err := p.gov.Admit(ctx); err != nil {
		return 0, false, err
	}

	session, release, err := p.acquireSession(ctx)
	if err != nil {
		return 0, false, err
	}
	defer release()

	searchURL := extract.SearchURL(p.cfg.City, page)
	pg, err := session.Open(ctx, searchURL)
	if err != nil {
		return 0, false, fmt.Errorf("open search page %d: %w", page, err)
	}
	defer pg.Close()

	urls := extract.PropertyURLs(pg)
	for _, u := range urls {
		inserted, err := p.frontier.EnqueueIfAbsent(ctx, u, p.cfg.City, page)
		if err != nil {
			return enqueued, false, err
		}
		if inserted {
			enqueued++
		}
	}

	hasNext = extract.HasNextPage(pg)
	log.Info().Str("city", p.cfg.City).Int("page", page).
		Int("found", len(urls)).Int("enqueued", enqueued).Bool("has_next", hasNext).
		Msg("seeded search page")
	return enqueued, hasNext, nil
}

// drain processes one frontier batch under the governor's admission
// control with a bounded worker pool.
func (p *Pipeline) drain(ctx context.Context, batch []models.FrontierEntry) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.gov.Concurrency())

	for _, entry := range batch {
		entry := entry
		eg.Go(func() error {
			return p.processEntry(egCtx, &entry)
		})
	}
	return eg.Wait()
}

// processEntry runs one fetch-extract-persist cycle with per-URL
// retries. Only context errors propagate: a URL that exhausts its
// retries is marked failed and the pipeline moves on.
func (p *Pipeline) processEntry(ctx context.Context, entry *models.FrontierEntry) error {
	var lastErr error

	retries := p.gov.MaxRetries()
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		if err := p.gov.Admit(ctx); err != nil {
			// Cancelled before the fetch: leave the entry
			// unprocessed so the next run picks it up.
			return err
		}

		err := p.crawlOnce(ctx, entry)
		if err == nil {
			p.gov.RecordSuccess()
			p.processed.Add(1)
			p.succeeded.Add(1)
			return p.frontier.MarkProcessed(ctx, entry.URL, models.OutcomeSuccess, "")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		lastErr = err
		p.gov.RecordFailure()
		log.Warn().Err(err).Str("url", entry.URL).Int("attempt", attempt).Int("max", retries).
			Msg("property crawl attempt failed")
	}

	p.processed.Add(1)
	p.failed.Add(1)
	log.Error().Err(lastErr).Str("url", entry.URL).Msg("property crawl failed, giving up")
	return p.frontier.MarkProcessed(ctx, entry.URL, models.OutcomeFailure, lastErr.Error())
}

// crawlOnce performs a single fetch-extract-persist attempt.
func (p *Pipeline) crawlOnce(ctx context.Context, entry *models.FrontierEntry) error {
	session, release, err := p.acquireSession(ctx)
	if err != nil {
		return err
	}
	defer release()

	pg, err := session.Open(ctx, entry.URL)
	if err != nil {
		return fmt.Errorf("open property page: %w", err)
	}
	defer pg.Close()

	prop, ok := extract.PropertyFields(pg, entry.URL, entry.SourceCity)
	if !ok {
		return fmt.Errorf("required property fields missing at %s", entry.URL)
	}

	// Child extraction failures are non-fatal: empty sets persist as
	// empty replacements.
	images := extract.Images(pg, prop.ID)
	schools := extract.Schools(pg, prop.ID)
	ratings := extract.RatingsOf(pg, prop.ID)
	comparisons := extract.PriceComparisons(pg, prop.ID)
	construction := extract.ConstructionProjects(pg, prop.ID)
	transactions := extract.Transactions(pg.APIResponses(), prop.ID)

	if err := p.persist(ctx, prop, images, transactions, schools, ratings, comparisons, construction); err != nil {
		return fmt.Errorf("persist property %s: %w", prop.ID, err)
	}

	log.Info().Str("property_id", prop.ID).Str("url", entry.URL).
		Int("images", len(images)).Int("schools", len(schools)).
		Int("transactions", len(transactions)).Int("construction", len(construction)).
		Msg("property persisted")
	return nil
}

// persist writes the property and the full replacement of every
// child-entity set as one transaction: a reader never sees child
// tables from two different crawls of the same property.
func (p *Pipeline) persist(
	ctx context.Context,
	prop *models.Property,
	images []models.PropertyImage,
	transactions []models.Transaction,
	schools []models.School,
	ratings *models.Ratings,
	comparisons []models.PriceComparison,
	construction []models.ConstructionProject,
) error {
	p.persistMu.Lock()
	defer p.persistMu.Unlock()

	return p.db.Transact(ctx, func(s storage.Store) error {
		repos := repository.New(s)

		if err := repos.Properties.Upsert(ctx, prop); err != nil {
			return err
		}

		if _, err := repos.Images.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}
		if err := repos.Images.InsertMany(ctx, images); err != nil {
			return err
		}

		if _, err := repos.Transactions.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}
		if err := repos.Transactions.InsertMany(ctx, transactions); err != nil {
			return err
		}

		if _, err := repos.Schools.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}
		if err := repos.Schools.InsertMany(ctx, schools); err != nil {
			return err
		}

		if ratings != nil {
			if err := repos.Ratings.Upsert(ctx, ratings); err != nil {
				return err
			}
		} else if _, err := repos.Ratings.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}

		if _, err := repos.Comparisons.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}
		if err := repos.Comparisons.InsertMany(ctx, comparisons); err != nil {
			return err
		}

		if _, err := repos.Construction.DeleteByPropertyID(ctx, prop.ID); err != nil {
			return err
		}
		return repos.Construction.InsertMany(ctx, construction)
	})
}

// acquireSession hands out a browsing session. Under session rotation
// every property gets a fresh browser after a randomized launch
// delay; otherwise one shared session serves the whole run.
func (p *Pipeline) acquireSession(ctx context.Context) (browser.Browser, func(), error) {
	if p.gov.ShouldRotateSession() {
		delay := p.gov.SessionLaunchDelay()
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		br, err := p.browsers.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("launch browsing session: %w", err)
		}
		return br, func() { br.Close() }, nil
	}

	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()
	if p.shared == nil {
		br, err := p.browsers.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("launch browsing session: %w", err)
		}
		p.shared = br
	}
	return p.shared, func() {}, nil
}

func (p *Pipeline) closeSharedSession() {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()
	if p.shared != nil {
		p.shared.Close()
		p.shared = nil
	}
}

func (p *Pipeline) targetReached() bool {
	return p.cfg.MaxProperties > 0 && int(p.succeeded.Load()) >= p.cfg.MaxProperties
}
