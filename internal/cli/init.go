package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const exampleConfig = `# teleread channel list.
# rsshub_base: https://rsshub.app
# db_path: data.db
# page_size: 30
channels:
  - slug: golang-news
    title: Golang News
    username: golang_news
  - slug: example-feed
    title: Example Feed
    rss: https://example.com/feed.xml
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example channels.yaml",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("exists: %s\n", configPath)
		return nil
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}
	fmt.Printf("created: %s\n", configPath)
	return nil
}
