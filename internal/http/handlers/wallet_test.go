package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/internal/billing"
	"offersync/internal/domain"
)

func TestGetWallet(t *testing.T) {
	env := newTestEnv(t, 900)
	rec, body := env.do(t, http.MethodGet, "/v1/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(900), body["balance"])
	assert.Equal(t, float64(150), body["nextUnitPrice"])
}

func TestListLedger(t *testing.T) {
	env := newTestEnv(t, 1000)
	ledger := env.app.Wallets.(*billing.Ledger)
	for _, id := range []string{"job/a", "job/b"} {
		_, err := ledger.ChargeNextUnit(context.Background(), billing.ChargeRequest{
			UserID: "u1", Type: domain.LedgerDescriptionUpdate, ProductID: id,
		})
		require.NoError(t, err)
	}

	rec, body := env.do(t, http.MethodGet, "/v1/wallet/ledger?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "job/b", items[0].(map[string]any)["productId"])

	rec, _ = env.do(t, http.MethodGet, "/v1/wallet/ledger?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
