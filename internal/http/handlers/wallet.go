package handlers

import (
	"net/http"
	"strconv"

	"offersync/internal/billing"
)

func (a *App) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := a.Wallets.Wallet(r.Context(), a.currentUserID(r))
	if err != nil {
		a.Logger.Error().Err(err).Msg("load wallet")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load wallet")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"balance":              wallet.Balance,
		"offersCreatedCounter": wallet.OffersCreatedCounter,
		"nextUnitPrice":        billing.PriceForNextUnit(wallet.OffersCreatedCounter),
	})
}

func (a *App) ListLedger(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := a.Wallets.Entries(r.Context(), a.currentUserID(r), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("load ledger")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load ledger")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": entries})
}
