// Package batch executes bulk-edit jobs chunk by chunk.
//
// Chunks run strictly in order; items inside a chunk run concurrently. Billing
// for a chunk happens sequentially after every item of that chunk settled, and
// the chunk's results reach the registry in a single update.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"offersync/internal/billing"
	"offersync/internal/content"
	"offersync/internal/domain"
	"offersync/internal/imagepipe"
	"offersync/internal/infra"
	"offersync/internal/marketplace"
	"offersync/internal/telemetry"
)

// Session is the per-user marketplace surface. *marketplace.Session satisfies it.
type Session interface {
	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	UpdateOffer(ctx context.Context, id string, patch marketplace.Patch) (marketplace.UpdateResult, error)
	ChangePrice(ctx context.Context, id, amount, currency string) (marketplace.PriceCommand, error)
	CheckPriceChangeCommand(ctx context.Context, commandID string) (marketplace.CommandStatus, error)
	UploadImage(ctx context.Context, pathOrURL string) (string, error)
}

// JobStore is the slice of the job registry the processor writes to.
type JobStore interface {
	Start(jobID string) error
	RecordBatchResult(jobID string, results []domain.ItemResult) error
	Finalize(jobID string, status domain.JobStatus) error
}

type Describer interface {
	GenerateBulk(ctx context.Context, userID string, offers []domain.Offer, opts domain.AIOptions) map[string]content.BulkResult
}

type ImageProcessor interface {
	Process(ctx context.Context, req imagepipe.ImageRequest) (imagepipe.Result, error)
}

type Biller interface {
	ChargeNextUnit(ctx context.Context, req billing.ChargeRequest) (billing.ChargeResult, error)
}

// Deps are the collaborators of a Processor. Content and Images may be nil
// when the matching providers are not configured.
type Deps struct {
	Jobs    JobStore
	Content Describer
	Images  ImageProcessor
	Billing Biller
}

type Options struct {
	ChunkSizeSimple   int
	ChunkSizeComplex  int
	PricePollInterval time.Duration
	PricePollAttempts int
}

func (o Options) withDefaults() Options {
	if o.ChunkSizeSimple <= 0 {
		o.ChunkSizeSimple = 20
	}
	if o.ChunkSizeComplex <= 0 {
		o.ChunkSizeComplex = 5
	}
	if o.PricePollInterval <= 0 {
		o.PricePollInterval = 2 * time.Second
	}
	if o.PricePollAttempts <= 0 {
		o.PricePollAttempts = 10
	}
	return o
}

type Processor struct {
	deps    Deps
	opts    Options
	logger  infra.Logger
	metrics *telemetry.Metrics
}

func NewProcessor(deps Deps, opts Options, logger infra.Logger, metrics *telemetry.Metrics) *Processor {
	return &Processor{
		deps:    deps,
		opts:    opts.withDefaults(),
		logger:  logger,
		metrics: metrics,
	}
}

// Run processes every offer of job and finalizes it. It never returns an
// error; all outcomes land in the registry.
func (p *Processor) Run(ctx context.Context, job *domain.Job, mod domain.Modification, session Session) {
	mode := mod.Mode()
	log := p.logger.With().Str("job_id", job.ID).Str("user_id", job.UserID).Str("mode", string(mode)).Logger()

	status := domain.JobStatusCompleted
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("batch: job aborted")
			status = domain.JobStatusFailed
		}
		if err := p.deps.Jobs.Finalize(job.ID, status); err != nil {
			log.Error().Err(err).Msg("batch: finalize job")
		}
		p.metrics.JobFinished(string(status))
		log.Info().Str("status", string(status)).Msg("batch: job finished")
	}()

	if err := p.deps.Jobs.Start(job.ID); err != nil {
		log.Error().Err(err).Msg("batch: start job")
		status = domain.JobStatusFailed
		return
	}

	size := p.opts.ChunkSizeSimple
	if mode == domain.ModeComplex {
		size = p.opts.ChunkSizeComplex
	}
	for start := 0; start < len(job.OfferIDs); start += size {
		end := min(start+size, len(job.OfferIDs))
		chunk := job.OfferIDs[start:end]
		began := time.Now()

		outcomes := p.runChunk(ctx, log, job, mod, session, chunk)
		results := make([]domain.ItemResult, 0, len(outcomes))
		for _, o := range outcomes {
			res := o.ItemResult()
			results = append(results, res)
			p.metrics.ItemProcessed(string(mode), string(res.Kind))
		}
		if err := p.deps.Jobs.RecordBatchResult(job.ID, results); err != nil {
			log.Error().Err(err).Int("chunk_start", start).Msg("batch: record chunk")
		}
		p.metrics.ObserveChunk(string(mode), time.Since(began).Seconds())
		log.Debug().Int("chunk_start", start).Int("items", len(chunk)).Msg("batch: chunk done")
	}
}

func (p *Processor) runChunk(ctx context.Context, log infra.Logger, job *domain.Job, mod domain.Modification, session Session, chunk []string) (outcomes []Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Strs("offer_ids", chunk).Msg("batch: critical chunk failure")
			outcomes = criticalOutcomes(chunk)
		}
	}()

	var err error
	if mod.Mode() == domain.ModeComplex {
		outcomes, err = p.complexChunk(ctx, log, job, mod, session, chunk)
	} else {
		outcomes, err = p.simpleChunk(ctx, log, mod, session, chunk)
	}
	if err != nil {
		log.Error().Err(err).Strs("offer_ids", chunk).Msg("batch: critical chunk failure")
		return criticalOutcomes(chunk)
	}
	return outcomes
}

// goSafe runs fn on g and turns a panic into a CriticalBatchError.
func goSafe(g *errgroup.Group, fn func()) {
	g.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = &CriticalBatchError{Cause: rec}
			}
		}()
		fn()
		return nil
	})
}

// settle charges the chunk's billable successes one at a time, in offer order.
// The idempotency key is job ID plus offer ID, so it guards retries inside one
// job only; a later job for the same offer is charged again.
func (p *Processor) settle(ctx context.Context, log infra.Logger, job *domain.Job, outcomes []Outcome) {
	if p.deps.Billing == nil {
		return
	}
	for i, o := range outcomes {
		success, ok := o.(Success)
		if !ok {
			continue
		}
		typ, billable := success.Artifact.billable()
		if !billable {
			continue
		}
		res, err := p.deps.Billing.ChargeNextUnit(ctx, billing.ChargeRequest{
			UserID:          job.UserID,
			Type:            typ,
			ProductID:       job.ID + "/" + success.OfferID,
			ExternalOfferID: success.OfferID,
			Description:     fmt.Sprintf("%s for offer %s", typ, success.OfferID),
		})
		if err != nil {
			log.Warn().Err(err).Str("offer_id", success.OfferID).Msg("batch: charge failed")
			outcomes[i] = failureFrom(success.OfferID, err)
			continue
		}
		if res.Skipped {
			log.Debug().Str("offer_id", success.OfferID).Msg("batch: already charged")
		}
	}
}
