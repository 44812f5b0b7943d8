package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"teleread/internal/config"
	"teleread/internal/ingest"
	"teleread/internal/source"
	"teleread/internal/store"
)

var refreshAll bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [slug]",
	Short: "Run a refresh cycle for one channel, or all with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  refreshAction,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "refresh every configured channel")
	rootCmd.AddCommand(refreshCmd)
}

func refreshAction(cmd *cobra.Command, args []string) error {
	if !refreshAll && len(args) == 0 {
		return errors.New("a channel slug or --all is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	refresher := ingest.New(db, source.NewFeed(), cfg.RSSHubBase, ingest.WithLogger(logrus.New()))

	channels := cfg.Channels
	if !refreshAll {
		ch, ok := cfg.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown channel %q", args[0])
		}
		channels = []config.Channel{ch}
	}

	failed := 0
	for _, ch := range channels {
		res, err := refresher.Refresh(cmd.Context(), ch)
		if err != nil {
			fmt.Printf("%s: %v\n", ch.Slug, err)
			failed++
			continue
		}
		fmt.Printf("%s: scanned %d, saved %d\n", ch.Slug, res.Scanned, res.Saved)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d channels failed", failed, len(channels))
	}
	return nil
}
