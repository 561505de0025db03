package domain

import (
	"errors"
	"fmt"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestModificationValidate(t *testing.T) {
	ended := OfferStatusEnded
	bogus := OfferStatus("paused")
	tests := []struct {
		name    string
		mod     Modification
		wantErr string
	}{
		{name: "empty", mod: Modification{}, wantErr: "modifications"},
		{name: "price ok", mod: Modification{Price: &PriceChange{Amount: "19.99"}}},
		{name: "price negative", mod: Modification{Price: &PriceChange{Amount: "-1"}}, wantErr: "price.amount"},
		{name: "price three decimals", mod: Modification{Price: &PriceChange{Amount: "1.999"}}, wantErr: "price.amount"},
		{name: "bad currency", mod: Modification{Price: &PriceChange{Amount: "5", Currency: "ZL"}}, wantErr: "price.currency"},
		{name: "negative stock", mod: Modification{Stock: intPtr(-2)}, wantErr: "stock"},
		{name: "status ended", mod: Modification{Status: &ended}},
		{name: "status unknown", mod: Modification{Status: &bogus}, wantErr: "status"},
		{name: "image unknown", mod: Modification{Image: &ImageEdit{Type: "melt"}}, wantErr: "image.type"},
		{name: "replace without input", mod: Modification{Image: &ImageEdit{Type: ImageReplaceBackground}}, wantErr: "image.backgroundPrompt"},
		{name: "bad scope", mod: Modification{Image: &ImageEdit{Type: ImageStudio, Scope: "some"}}, wantErr: "image.scope"},
		{name: "ai only", mod: Modification{AI: &AIOptions{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mod.Validate("PLN")
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tc.wantErr {
				t.Fatalf("field = %q, want %q", verr.Field, tc.wantErr)
			}
		})
	}
}

func TestModificationDefaults(t *testing.T) {
	mod := Modification{
		Price: &PriceChange{Amount: " 10 "},
		Image: &ImageEdit{Type: ImageGrayscale},
	}
	if err := mod.Validate("PLN"); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if mod.Price.Currency != "PLN" || mod.Price.Amount != "10" {
		t.Fatalf("price = %+v", mod.Price)
	}
	if mod.Image.Scope != ImageScopeFirst {
		t.Fatalf("scope = %q, want first", mod.Image.Scope)
	}
	if mod.Mode() != ModeComplex {
		t.Fatalf("mode = %q, want complex", mod.Mode())
	}
}

func TestModificationModes(t *testing.T) {
	priceOnly := Modification{Price: &PriceChange{Amount: "1"}}
	if priceOnly.Mode() != ModeSimple || !priceOnly.PriceOnly() {
		t.Fatal("price-only request should be simple and price-only")
	}
	withStock := Modification{Price: &PriceChange{Amount: "1"}, Stock: intPtr(3)}
	if withStock.PriceOnly() {
		t.Fatal("price+stock is not price-only")
	}
}

func TestFailureKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, ""},
		{&InsufficientFundsError{Balance: 1, Required: 2}, FailureInsufficientFunds},
		{fmt.Errorf("wrap: %w", ErrProviderFunds), FailureProviderFunds},
		{&AuthExpiredError{}, FailureAuthExpired},
		{&GenerationError{Reason: "empty"}, FailureGeneration},
		{ErrGenerationFailed, FailureGeneration},
		{ErrOfferNotFound, FailureNotFound},
		{&ExternalServiceError{Status: 422, Detail: "bad"}, FailureMarketplace},
		{errors.New("boom"), FailureInternal},
	}
	for _, tc := range tests {
		if got := FailureKindOf(tc.err); got != tc.want {
			t.Fatalf("FailureKindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
