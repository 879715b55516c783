package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahiokk/tirika-import/internal/cli"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [запрос]",
		Short: "Поиск товара в справочнике по коду или названию",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSearch,
	}
	cmd.Flags().Int("limit", 20, "максимум результатов")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := loadSettings()

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	matcher, err := newMatcher(ctx, store, settings)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	candidates := matcher.Search(strings.Join(args, " "), limit)
	cmd.Println(cli.RenderCandidates(candidates))
	return nil
}
