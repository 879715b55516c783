package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahiokk/tirika-import/internal/cli"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <файл накладной>",
		Short: "Импортировать накладную в базу Tirika",
		Long: `Разбирает файл накладной, сопоставляет строки со справочником и записывает
приходную накладную одной транзакцией: документ, строки, остатки,
обновления товаров, платеж и запись в журнал операций.

С флагом --dry-run выполняется полный прогон с откатом в конце.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "полный прогон без записи в базу")
	cmd.Flags().Int64("supplier", 0, "id поставщика (0 = автоопределение по накладной)")
	cmd.Flags().Int64("user", 0, "id пользователя для документа")
	cmd.Flags().Int64("shop", 0, "id склада")
	cmd.Flags().String("date", "", "дата документа в формате дд.мм.гггг (по умолчанию из накладной)")
	cmd.Flags().Bool("no-backup", false, "не делать backup базы перед импортом")
	cmd.Flags().Bool("no-auto-pay", false, "не создавать платеж на сумму накладной")
	cmd.Flags().Bool("create-missing", false, "создавать товары для несопоставленных строк")
	cmd.Flags().Bool("update-sell-price", false, "обновлять цену продажи существующих товаров")
	cmd.Flags().Bool("apply-prices", false, "применить рассчитанную цену продажи перед импортом")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := loadSettings()

	if cmd.Flags().Changed("user") {
		settings.UserID, _ = cmd.Flags().GetInt64("user")
	}
	if cmd.Flags().Changed("shop") {
		settings.ShopID, _ = cmd.Flags().GetInt64("shop")
	}
	if cmd.Flags().Changed("create-missing") {
		settings.CreateMissingGoods, _ = cmd.Flags().GetBool("create-missing")
	}
	if cmd.Flags().Changed("update-sell-price") {
		settings.UpdateExistingSellPrice, _ = cmd.Flags().GetBool("update-sell-price")
	}
	if noBackup, _ := cmd.Flags().GetBool("no-backup"); noBackup {
		settings.BackupBeforeImport = false
	}
	if noAutoPay, _ := cmd.Flags().GetBool("no-auto-pay"); noAutoPay {
		settings.AutoPay = false
	}

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
		session.ApplySuggestedPrices(nil)
	}
	printSummary(session)

	opts := settings.ImportOptions()
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	if cmd.Flags().Changed("supplier") {
		opts.SupplierID, _ = cmd.Flags().GetInt64("supplier")
	} else {
		opts.SupplierID = resolveSupplier(ctx, store, settings, session.Invoice().SupplierHint)
	}

	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		date, err := time.Parse("02.01.2006", raw)
		if err != nil {
			return fmt.Errorf("неверный формат даты %q, ожидается дд.мм.гггг", raw)
		}
		opts.WaybillDate = &date
	}

	result, err := store.ImportInvoice(ctx, session.Invoice(), opts)
	if err != nil {
		return err
	}

	cmd.Println(cli.RenderImportResult(result))
	return nil
}
