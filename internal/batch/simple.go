package batch

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"offersync/internal/domain"
	"offersync/internal/infra"
)

func (p *Processor) simpleChunk(ctx context.Context, log infra.Logger, mod domain.Modification, session Session, chunk []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(chunk))
	var g errgroup.Group
	for i, id := range chunk {
		goSafe(&g, func() {
			itemLog := log.With().Str("offer_id", id).Logger()
			if mod.PriceOnly() {
				outcomes[i] = p.changePrice(ctx, itemLog, session, id, *mod.Price)
				return
			}
			if _, err := session.UpdateOffer(ctx, id, basePatch(mod)); err != nil {
				itemLog.Warn().Err(err).Msg("batch: update offer failed")
				outcomes[i] = failureFrom(id, err)
				return
			}
			outcomes[i] = Success{OfferID: id}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// changePrice submits a price command and polls it. A command that never
// settles within the poll budget is reported as a success.
func (p *Processor) changePrice(ctx context.Context, log infra.Logger, session Session, id string, price domain.PriceChange) Outcome {
	cmd, err := session.ChangePrice(ctx, id, price.Amount, price.Currency)
	if err != nil {
		log.Warn().Err(err).Msg("batch: price change rejected")
		return failureFrom(id, err)
	}

	timer := time.NewTimer(p.opts.PricePollInterval)
	defer timer.Stop()
	for attempt := 1; attempt <= p.opts.PricePollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return failureFrom(id, ctx.Err())
		case <-timer.C:
		}
		status, err := session.CheckPriceChangeCommand(ctx, cmd.ID)
		switch {
		case err != nil:
			log.Warn().Err(err).Int("attempt", attempt).Msg("batch: price command poll failed")
		case status.Done() && status.Failed > 0:
			msg := "price change failed"
			if len(status.Errors) > 0 {
				msg = strings.Join(status.Errors, "; ")
			}
			return Failure{OfferID: id, Kind: domain.FailureMarketplace, Message: msg}
		case status.Done():
			return Success{OfferID: id}
		}
		timer.Reset(p.opts.PricePollInterval)
	}
	log.Warn().Str("command_id", cmd.ID).Msg("batch: price command still pending, assuming success")
	return Success{OfferID: id}
}
