package main

import (
	"context"
	"fmt"

	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/store"
	"go.uber.org/zap"
)

func runSeed(ctx context.Context, envFiles []string) error {
	cfg, logger, err := setup(envFiles)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := store.Open(ctx, cfg.StoreURL, cfg.StoreAPIKey, store.Options{})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	created, err := seedContent(ctx, st)
	if err != nil {
		return err
	}
	if created == 0 {
		logger.Info("store already has content; nothing seeded")
		return nil
	}
	logger.Info("demo content seeded", zap.Int("items", created))
	return nil
}

// seedContent writes the demo dataset when the content table is empty and
// returns how many items it created.
func seedContent(ctx context.Context, st store.ContentStore) (int, error) {
	existing, err := st.ListContent(ctx, store.ContentFilter{})
	if err != nil {
		return 0, fmt.Errorf("list content: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, input := range admin.DemoInputs() {
		if _, err := st.CreateContent(ctx, input); err != nil {
			return created, fmt.Errorf("create %s item %q: %w", input.Section, input.Title, err)
		}
		created++
	}
	return created, nil
}
