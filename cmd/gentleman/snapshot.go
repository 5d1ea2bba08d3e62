package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gentleman-programming/gentleman-signals-state-manager/internal/config"
	interrors "github.com/gentleman-programming/gentleman-signals-state-manager/internal/errors"
)

func snapshotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the persisted snapshot",
		Long: `Print the snapshot from the configured persistence backend.

Reads the store defined by gentleman.json (file or S3) and writes the
snapshot JSON to stdout, so it can be inspected or piped:

  gentleman snapshot | jq .counter`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to gentleman.json (default ./gentleman.json)")

	return cmd
}

func runSnapshot(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Persistence.Mode == config.PersistNone {
		return interrors.New("E103").
			WithDetail("persistence is disabled").
			WithSuggestion("set persistence.mode to file or s3 in gentleman.json")
	}

	store, err := snapshotStore(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := store.Load(ctx)
	if err != nil {
		return interrors.New("E201").Wrap(err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
