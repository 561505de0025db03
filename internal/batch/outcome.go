package batch

import (
	"fmt"

	"offersync/internal/domain"
)

const criticalMessage = "critical batch error"

// Outcome is the result of processing one offer. It is either Success or Failure.
type Outcome interface {
	ItemResult() domain.ItemResult
	isOutcome()
}

// Artifact describes the billable work produced for an offer.
type Artifact struct {
	DescriptionChanged bool
	// ImagesEdited counts uploaded images the provider actually edited;
	// re-encoded fallbacks are not counted.
	ImagesEdited int
}

func (a Artifact) billable() (domain.LedgerType, bool) {
	switch {
	case a.DescriptionChanged:
		return domain.LedgerDescriptionUpdate, true
	case a.ImagesEdited > 0:
		return domain.LedgerImageUpdate, true
	default:
		return "", false
	}
}

type Success struct {
	OfferID  string
	Artifact Artifact
}

func (s Success) ItemResult() domain.ItemResult {
	return domain.ItemResult{OfferID: s.OfferID, Success: true}
}

func (Success) isOutcome() {}

type Failure struct {
	OfferID string
	Kind    domain.FailureKind
	Message string
}

func (f Failure) ItemResult() domain.ItemResult {
	return domain.ItemResult{OfferID: f.OfferID, Error: f.Message, Kind: f.Kind}
}

func (Failure) isOutcome() {}

func failureFrom(offerID string, err error) Failure {
	return Failure{OfferID: offerID, Kind: domain.FailureKindOf(err), Message: err.Error()}
}

// CriticalBatchError is a fault that escaped per-item handling. It fails the
// whole chunk but not the job.
type CriticalBatchError struct {
	Cause any
}

func (e *CriticalBatchError) Error() string {
	return fmt.Sprintf("%s: %v", criticalMessage, e.Cause)
}

func criticalOutcomes(offerIDs []string) []Outcome {
	out := make([]Outcome, len(offerIDs))
	for i, id := range offerIDs {
		out[i] = Failure{OfferID: id, Kind: domain.FailureCritical, Message: criticalMessage}
	}
	return out
}
