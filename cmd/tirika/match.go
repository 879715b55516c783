package main

import (
	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <файл накладной>",
		Short: "Разобрать накладную и сопоставить строки со справочником",
		Long: `Разбирает файл накладной (Микадо HTML или Аквилон Excel), сопоставляет
каждую строку со справочником товаров и печатает таблицу результатов.
База не изменяется.`,
		Args: cobra.ExactArgs(1),
		RunE: runMatch,
	}
	cmd.Flags().Bool("apply-prices", false, "применить рассчитанную цену продажи ко всем строкам")
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := loadSettings()

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	session, err := loadSession(ctx, store, settings, args[0])
	if err != nil {
		return err
	}

	if apply, _ := cmd.Flags().GetBool("apply-prices"); apply {
		changed, marked := session.ApplySuggestedPrices(nil)
		cmd.Printf("Применена рассчитанная цена: изменено строк=%d, отмечено к обновлению в БД=%d.\n", changed, marked)
	}

	printSummary(session)
	return nil
}
