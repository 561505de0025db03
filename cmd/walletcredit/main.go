package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"offersync/internal/billing"
	"offersync/internal/infra"
)

func main() {
	var (
		idFlag          string
		amountFlag      int64
		descriptionFlag string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to credit (UUID)")
	flag.Int64Var(&amountFlag, "amount", 0, "amount to add, in minor currency units")
	flag.StringVar(&descriptionFlag, "description", "manual top-up", "ledger entry description")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}
	if _, err := uuid.Parse(userID); err != nil {
		exitWithError(fmt.Errorf("invalid user id %q: %w", userID, err))
	}
	if amountFlag <= 0 {
		exitWithError(errors.New("-amount must be positive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "walletcredit").Logger()
	ledger := billing.NewLedger(billing.NewPGStore(infra.NewSQLRunner(pool, logger)), logger, nil)

	creditCtx, cancelCredit := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCredit()
	result, err := ledger.Credit(creditCtx, userID, amountFlag, strings.TrimSpace(descriptionFlag))
	if err != nil {
		exitWithError(fmt.Errorf("failed to credit wallet: %w", err))
	}

	fmt.Printf("Wallet of %s credited with %d\n", userID, amountFlag)
	fmt.Printf("balance=%d\n", result.Wallet.Balance)
	fmt.Printf("offers_created_counter=%d\n", result.Wallet.OffersCreatedCounter)
	fmt.Printf("entry_id=%s\n", result.Entry.ID)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
