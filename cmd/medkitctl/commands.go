package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"telegram-medkit/internal/config"
	"telegram-medkit/internal/domain/model"
	tele "telegram-medkit/internal/infra/adapters/telegram"
	"telegram-medkit/internal/infra/db/csvstore"
	"telegram-medkit/internal/infra/i18n"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/usecase"
)

// env is what every subcommand works with: the config and both CSV stores.
type env struct {
	cfg    *config.Config
	log    *zerolog.Logger
	loc    *time.Location
	meds   *csvstore.MedicineRepo
	groups *csvstore.GroupRepo
}

func openEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	// stdout carries the tables, so logs go to stderr
	logger := logging.NewWithWriter(cfg.Log, true, cmd.ErrOrStderr())

	meds, err := csvstore.NewMedicineRepo(cfg.Storage.MedicinesFile, logger)
	if err != nil {
		return nil, err
	}
	groups, err := csvstore.NewGroupRepo(cfg.Storage.GroupsFile, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger, loc: loc, meds: meds, groups: groups}, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "medkitctl",
		Short:         "Inspect and seed the medkit bot's CSV stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to YAML config file")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(expiredCmd())
	rootCmd.AddCommand(groupsCmd())
	rootCmd.AddCommand(seedCmd())
	return rootCmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the kit of one group",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			group, _ := cmd.Flags().GetString("group")
			meds, err := usecase.NewInventoryUseCase(e.meds, e.log).List(cmd.Context(), group)
			if err != nil {
				return err
			}
			if len(meds) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "group %q has no medicines\n", group)
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "NAME", "QTY", "EXPIRES", "SYMPTOMS")
			for _, m := range meds {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", m.Name, m.Quantity, m.ExpiryString(), m.Symptoms)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("group", "", "group (kit) name")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func expiredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expired",
		Short: "List expired in-stock medicines of every group",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			today, err := dayFlag(cmd, e.loc)
			if err != nil {
				return err
			}

			dryRun, _ := cmd.Flags().GetBool("notify-dry-run")
			if dryRun {
				return runDryNotify(cmd.Context(), cmd.OutOrStdout(), e, today)
			}

			all, err := e.meds.All(cmd.Context())
			if err != nil {
				return err
			}
			byGroup, order := usecase.ExpiredByGroup(all, model.DateOf(today))
			if len(order) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing expired before %s\n", model.FormatDate(today))
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "GROUP", "NAME", "EXPIRES", "QTY")
			for _, g := range order {
				for _, m := range byGroup[g] {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", g, m.Name, m.ExpiryString(), m.Quantity)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("date", "", "reference date YYYY-MM-DD (default: today in the scheduler timezone)")
	cmd.Flags().Bool("notify-dry-run", false, "build the notifications the daily job would send and log them instead")
	return cmd
}

// runDryNotify runs the real expiry scan against a notifier that only logs.
func runDryNotify(ctx context.Context, out io.Writer, e *env, today time.Time) error {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, e.cfg.Bot.Language)
	if err != nil {
		return err
	}
	uc := usecase.NewExpiryUseCase(e.meds, e.groups, tele.NewNoopBotAdapter(e.log), tr, e.loc, e.log).
		WithClock(func() time.Time { return today })
	report, err := uc.CheckAndNotify(ctx)
	if report == nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d expired in %d groups, %d notifications\n",
		model.FormatDate(report.Today), report.Expired, report.Groups, report.Sent)
	return err
}

func groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Show which chat uses which kit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			bindings, err := e.groups.Bindings(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "USER_ID", "GROUP_ID")
			for _, b := range bindings {
				fmt.Fprintf(tw, "%d\t%s\n", b.UserID, b.GroupID)
			}
			return tw.Flush()
		},
	}
}

type seedItem struct {
	name     string
	days     int // expiry relative to today
	qty      int
	symptoms string
}

var seedItems = []seedItem{
	{"aspirin", 365, 10, "fever; headache"},
	{"ibuprofen", 180, 20, "pain; fever; inflammation"},
	{"loratadine", 90, 7, "allergy"},
	{"paracetamol", -30, 5, "fever; pain"},
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a group's kit with sample medicines (one already expired)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			group, _ := cmd.Flags().GetString("group")
			uc := usecase.NewInventoryUseCase(e.meds, e.log)
			today := time.Now().In(e.loc)
			for _, it := range seedItems {
				expiry := today.AddDate(0, 0, it.days)
				if _, err := uc.Add(cmd.Context(), group, it.name, expiry, it.qty, model.ParseSymptomInput(it.symptoms)); err != nil {
					return fmt.Errorf("seed %s: %w", it.name, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d medicines into %q\n", len(seedItems), group)
			return nil
		},
	}
	cmd.Flags().String("group", "", "group (kit) name")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func dayFlag(cmd *cobra.Command, loc *time.Location) (time.Time, error) {
	s, _ := cmd.Flags().GetString("date")
	if s == "" {
		return time.Now().In(loc), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	// midday keeps the calendar date when shifted into loc
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}

func newTable(w io.Writer, columns ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	return tw
}
