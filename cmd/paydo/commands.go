package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"paydo/internal/backup"
	"paydo/internal/budget"
	"paydo/internal/cli"
	"paydo/internal/core"
	apphttp "paydo/internal/http"
	"paydo/internal/jalali"
	"paydo/internal/ledger"
	applog "paydo/internal/log"
)

const shutdownTimeout = 30 * time.Second

type serveCmd struct {
	Port string `help:"Port override, defaults to PORT."`
}

func (c *serveCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentApp)
	if err != nil {
		return err
	}
	port := s.cfg.Port
	if c.Port != "" {
		port = c.Port
	}

	srv := apphttp.NewServer(":"+port, s.ledger, s.logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(s.logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown error", applog.FieldError, err)
		}
		s.Close()
	})

	s.logger.Info("Starting paydo server", "port", port, "backend", s.cfg.DataBackend)
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		s.logger.Error("Server error", applog.FieldError, err, "port", port)
		srv.Shutdown(context.Background())
		s.Close()
		return err
	case <-ctx.Done():
	}
	<-done
	s.logger.Info("Server stopped gracefully")
	return nil
}

type budgetCmd struct {
	Offset int    `help:"Months relative to the current one, e.g. -1 for last month."`
	Year   int    `help:"Persian year; requires --month."`
	Month  int    `help:"Persian month 1-12; requires --year."`
	Kind   string `default:"expense" help:"expense or income."`
}

func (c *budgetCmd) Run(rc *runContext) error {
	kind := core.TransactionType(c.Kind)
	if kind != core.Expense && kind != core.Income {
		return fmt.Errorf("invalid kind %q: must be expense or income", c.Kind)
	}
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	var report budget.Report
	if c.Year != 0 || c.Month != 0 {
		p := jalali.Period{Year: c.Year, Month: c.Month}
		if !p.Valid() {
			return fmt.Errorf("invalid period %d/%d", c.Year, c.Month)
		}
		report = s.ledger.Budget(p, kind)
	} else {
		report = s.ledger.BudgetForOffset(c.Offset, kind)
	}
	renderBudget(rc.out, report)
	return nil
}

type addCmd struct {
	Type    string `arg help:"expense, income or transfer."`
	Amount  string `arg help:"Amount in tomans; Persian digits and separators are accepted."`
	Title   string `arg help:"Short description."`
	Tags    string `help:"Up to three tags separated by spaces or commas."`
	Account int64  `default:"1" help:"Source account ID."`
	Target  int64  `help:"Target account ID for transfers."`
}

func (c *addCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.ledger.AddTransaction(context.Background(), ledger.Draft{
		Type:            core.TransactionType(c.Type),
		Amount:          jalali.CleanNumber(c.Amount),
		Title:           c.Title,
		Tags:            c.Tags,
		AccountID:       c.Account,
		TargetAccountID: c.Target,
	})
	if err != nil {
		return userError(err)
	}
	rc.printf("ثبت شد: %s\n", formatTransaction(t, s.ledger))
	return nil
}

type historyCmd struct {
	Query string `arg optional help:"Text matched against title, amount and tags."`
	Limit int    `default:"20" help:"Maximum rows printed, 0 for all."`
}

func (c *historyCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	txs := s.ledger.Search(c.Query)
	if len(txs) == 0 {
		rc.printf("تراکنشی یافت نشد\n")
		return nil
	}
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}
	for _, t := range txs {
		rc.printf("%s\n", formatTransaction(t, s.ledger))
	}
	return nil
}

type accountCmd struct {
	List   accountListCmd   `cmd help:"List accounts and the total balance."`
	Add    accountAddCmd    `cmd help:"Create an account."`
	Delete accountDeleteCmd `cmd help:"Delete an account; its transactions are kept."`
}

type accountListCmd struct{}

func (c *accountListCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, a := range s.ledger.Accounts() {
		rc.printf("%d\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, jalali.FormatMoney(a.Balance))
	}
	rc.printf("موجودی کل: %s\n", jalali.FormatMoney(s.ledger.TotalBalance()))
	return nil
}

type accountAddCmd struct {
	Name    string `arg help:"Account name."`
	Type    string `default:"card" help:"cash or card."`
	Balance string `default:"0" help:"Opening balance."`
}

func (c *accountAddCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.ledger.AddAccount(context.Background(), ledger.AccountDraft{
		Name:    c.Name,
		Type:    core.AccountType(c.Type),
		Balance: jalali.CleanNumber(c.Balance),
	})
	if err != nil {
		return userError(err)
	}
	rc.printf("حساب %s با شناسه %d ساخته شد\n", a.Name, a.ID)
	return nil
}

type accountDeleteCmd struct {
	ID int64 `arg help:"Account ID."`
}

func (c *accountDeleteCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ledger.DeleteAccount(context.Background(), c.ID); err != nil {
		return userError(err)
	}
	rc.printf("حساب حذف شد\n")
	return nil
}

type tagsCmd struct {
	List   tagsListCmd   `cmd help:"List tags with usage counts."`
	Delete tagsDeleteCmd `cmd help:"Remove a tag from every transaction."`
}

type tagsListCmd struct{}

func (c *tagsListCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, tc := range s.ledger.Tags() {
		rc.printf("%s\t%s\n", tc.Tag, jalali.ToPersianDigits(strconv.Itoa(tc.Count)))
	}
	return nil
}

type tagsDeleteCmd struct {
	Tag string `arg help:"Tag to remove, with or without the leading #."`
}

func (c *tagsDeleteCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.ledger.DeleteTag(context.Background(), c.Tag)
	if err != nil {
		return err
	}
	rc.printf("%s تراکنش ویرایش شد\n", jalali.ToPersianDigits(strconv.Itoa(n)))
	return nil
}

type backupCmd struct {
	Output     string `help:"Destination file, defaults to Paydo_Backup_<date>.json."`
	Passphrase string `help:"Encrypt the backup with this passphrase."`
}

func (c *backupCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	path := c.Output
	if path == "" {
		path = backup.FileName(time.Now())
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := s.ledger.Backup(f, c.Passphrase); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	rc.printf("پشتیبان در %s ذخیره شد\n", path)
	return nil
}

type restoreCmd struct {
	File       string `arg help:"Backup file to restore."`
	Passphrase string `help:"Passphrase of an encrypted backup."`
}

func (c *restoreCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	if err := s.ledger.Restore(context.Background(), f, c.Passphrase); err != nil {
		if errors.Is(err, backup.ErrInvalidBackup) {
			return errors.New("فایل نامعتبر")
		}
		return err
	}
	rc.printf("اطلاعات بازیابی شد\n")
	return nil
}

type resetCmd struct {
	Yes bool `help:"Confirm deleting all data."`
}

func (c *resetCmd) Run(rc *runContext) error {
	if !c.Yes {
		return errors.New("refusing to reset without --yes")
	}
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ledger.Reset(context.Background()); err != nil {
		return err
	}
	rc.printf("همه اطلاعات پاک شد\n")
	return nil
}

type usageCmd struct{}

func (c *usageCmd) Run(rc *runContext) error {
	s, err := rc.open(context.Background(), applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.ledger.StorageUsage(context.Background())
	if err != nil {
		return err
	}
	kb := strconv.FormatFloat(float64(n)/1024, 'f', 2, 64)
	rc.printf("حجم اشغال شده: %s کیلوبایت\n", jalali.ToPersianDigits(kb))
	return nil
}

// userError replaces validation errors with their Persian notification.
func userError(err error) error {
	if msg := core.UserMessage(err); msg != "" {
		return errors.New(msg)
	}
	return err
}
