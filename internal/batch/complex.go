package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"offersync/internal/content"
	"offersync/internal/domain"
	"offersync/internal/imagepipe"
	"offersync/internal/infra"
	"offersync/internal/marketplace"
)

var errDescriberUnavailable = &domain.GenerationError{Reason: "description generation is not configured"}

// complexChunk fetches offers, generates descriptions, regenerates images,
// pushes updates and finally bills. The returned slice follows chunk order.
func (p *Processor) complexChunk(ctx context.Context, log infra.Logger, job *domain.Job, mod domain.Modification, session Session, chunk []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(chunk))
	offers := make([]*domain.Offer, len(chunk))

	var g errgroup.Group
	for i, id := range chunk {
		goSafe(&g, func() {
			offer, err := session.GetOffer(ctx, id)
			switch {
			case err != nil:
				outcomes[i] = failureFrom(id, err)
			case offer == nil:
				outcomes[i] = failureFrom(id, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, id))
			default:
				offers[i] = offer
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	descriptions := p.describe(ctx, job.UserID, mod, offers)

	g = errgroup.Group{}
	for i, offer := range offers {
		if offer == nil {
			continue
		}
		goSafe(&g, func() {
			var description *string
			if mod.AI != nil {
				res, ok := descriptions[offer.ID]
				switch {
				case !ok:
					outcomes[i] = failureFrom(offer.ID, errDescriberUnavailable)
					return
				case res.Err != nil:
					outcomes[i] = failureFrom(offer.ID, res.Err)
					return
				}
				description = &res.Description
			}
			outcomes[i] = p.updateComplex(ctx, log, mod, session, offer, description)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.settle(ctx, log, job, outcomes)
	return outcomes, nil
}

func (p *Processor) describe(ctx context.Context, userID string, mod domain.Modification, offers []*domain.Offer) map[string]content.BulkResult {
	if mod.AI == nil || p.deps.Content == nil {
		return nil
	}
	batch := make([]domain.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer != nil {
			batch = append(batch, *offer)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return p.deps.Content.GenerateBulk(ctx, userID, batch, *mod.AI)
}

// updateComplex regenerates the offer's images, then sends one patch with
// everything that changed.
func (p *Processor) updateComplex(ctx context.Context, log infra.Logger, mod domain.Modification, session Session, offer *domain.Offer, description *string) Outcome {
	log = log.With().Str("offer_id", offer.ID).Logger()
	patch := basePatch(mod)
	var artifact Artifact

	if description != nil {
		patch.Description = description
		artifact.DescriptionChanged = *description != offer.Description
	}

	if mod.Image != nil {
		images, edited, err := p.regenerateImages(ctx, log, *mod.Image, session, offer.Images)
		if err != nil {
			return failureFrom(offer.ID, err)
		}
		if images != nil {
			patch.Images = images
		}
		artifact.ImagesEdited = edited
	}

	if !patch.Empty() {
		if _, err := session.UpdateOffer(ctx, offer.ID, patch); err != nil {
			log.Warn().Err(err).Msg("batch: update offer failed")
			return failureFrom(offer.ID, err)
		}
	}
	return Success{OfferID: offer.ID, Artifact: artifact}
}

// regenerateImages edits the images selected by scope and uploads each result.
// It returns the full new image list, or nil when nothing was replaced.
// An unusable source keeps its original image; a failed upload fails the item.
func (p *Processor) regenerateImages(ctx context.Context, log infra.Logger, edit domain.ImageEdit, session Session, current []string) ([]string, int, error) {
	if p.deps.Images == nil || len(current) == 0 {
		return nil, 0, nil
	}
	targets := 1
	if edit.Scope == domain.ImageScopeAll {
		targets = len(current)
	}

	images := append([]string(nil), current...)
	replaced, edited := 0, 0
	for i := 0; i < targets; i++ {
		res, err := p.deps.Images.Process(ctx, imagepipe.ImageRequest{SourceURL: current[i], Edit: edit})
		if err != nil {
			log.Warn().Err(err).Int("image", i).Msg("batch: image kept, source unusable")
			continue
		}
		location, err := session.UploadImage(ctx, res.Path)
		res.Cleanup()
		if err != nil {
			return nil, 0, fmt.Errorf("upload image %d: %w", i, err)
		}
		images[i] = location
		replaced++
		if !res.Fallback {
			edited++
		}
	}
	if replaced == 0 {
		return nil, 0, nil
	}
	return images, edited, nil
}

func basePatch(mod domain.Modification) marketplace.Patch {
	return marketplace.Patch{
		Price:  mod.Price,
		Stock:  mod.Stock,
		Status: mod.Status,
	}
}
