package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/studyquest/internal/export"
	"github.com/example/studyquest/internal/server"
	"github.com/example/studyquest/pkg/models"
)

func newExportLedgerCmd() *cobra.Command {
	var (
		profileID int64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "export-ledger",
		Short: "Write a profile's coin and token ledgers to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profileID <= 0 {
				return errors.New("--profile is required")
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			l, err := export.Export(cmd.Context(), db, profileID, out, cfg.Location())
			if err != nil {
				return err
			}
			logger.Info("ledger exported", "profile_id", profileID, "path", out)
			fmt.Fprintln(cmd.OutOrStdout(), l.Summary())
			return nil
		},
	}
	cmd.Flags().Int64Var(&profileID, "profile", 0, "profile id")
	cmd.Flags().StringVar(&out, "out", "ledger.xlsx", "output file")
	return cmd
}

func newCreateProfileCmd() *cobra.Command {
	var (
		name     string
		ageGroup string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "create-profile",
		Short: "Add a family member profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			group := models.AgeGroup(ageGroup)
			switch group {
			case models.AgeGroupChild, models.AgeGroupTeen, models.AgeGroupAdult:
			default:
				return errors.Errorf("unknown age group %q", ageGroup)
			}
			r := models.Role(role)
			switch r {
			case models.RoleStudent, models.RoleParent, models.RoleAdmin:
			default:
				return errors.Errorf("unknown role %q", role)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			p := &models.Profile{Name: name, AgeGroup: group, Role: r}
			if err := db.Profiles.Create(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created profile %d (%s)\n", p.ID, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&ageGroup, "age-group", string(models.AgeGroupChild), "child, teen or adult")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStudent), "student, parent or admin")
	return cmd
}

func newLinkTelegramCmd() *cobra.Command {
	var (
		profileID int64
		chatID    int64
		unlink    bool
	)
	cmd := &cobra.Command{
		Use:   "link-telegram",
		Short: "Attach a Telegram chat to a profile for due-card reminders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profileID <= 0 {
				return errors.New("--profile is required")
			}
			if !unlink && chatID == 0 {
				return errors.New("--chat is required unless --unlink is set")
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			var chat *int64
			if !unlink {
				chat = &chatID
			}
			return db.Profiles.SetTelegramChat(cmd.Context(), profileID, chat)
		},
	}
	cmd.Flags().Int64Var(&profileID, "profile", 0, "profile id")
	cmd.Flags().Int64Var(&chatID, "chat", 0, "telegram chat id")
	cmd.Flags().BoolVar(&unlink, "unlink", false, "remove the linked chat")
	return cmd
}

func newIssueTokenCmd() *cobra.Command {
	var (
		profileID int64
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a bearer token for a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profileID <= 0 {
				return errors.New("--profile is required")
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireServe(); err != nil {
				return err
			}
			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := db.Profiles.GetByID(cmd.Context(), profileID)
			if err != nil {
				return err
			}
			token, err := server.NewAuthenticator(cfg.JWTSecret).Issue(p.ID, p.Role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&profileID, "profile", 0, "profile id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
