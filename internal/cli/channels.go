package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"teleread/internal/config"
	"teleread/internal/store"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List configured channels and their stored post counts",
	RunE:  channelsAction,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func channelsAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tSOURCE\tPOSTS")
	for _, ch := range cfg.Channels {
		n, err := db.Count(context.Background(), ch.Slug)
		if err != nil {
			return fmt.Errorf("count %s: %w", ch.Slug, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ch.Slug, ch.Title, channelRef(ch), n)
	}
	return w.Flush()
}

func channelRef(ch config.Channel) string {
	switch {
	case ch.Stream != "":
		return "stream:" + ch.Stream
	case ch.RSS != "":
		return ch.RSS
	default:
		return "rsshub:" + ch.Username
	}
}
