package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/workflow"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			log.Info().Msg("schema applied")
			return nil
		},
	}
}

// newGrantCmd bootstraps memberships directly in the database. The API only
// lets existing admins grant roles, so the first owner of a workspace comes
// from here.
func newGrantCmd() *cobra.Command {
	var (
		workspace string
		user      string
		name      string
		email     string
		role      string
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a user a role in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workspaceID, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("--workspace: %w", err)
			}
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("--role: unknown role %q", role)
			}

			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			now := time.Now().UTC()
			err = store.RunInTx(ctx, func(tx workflow.Store) error {
				if err := tx.Users().Create(ctx, &domain.User{ID: userID, Name: name, Email: email, CreatedAt: now}); err != nil {
					return err
				}
				return tx.Memberships().Create(ctx, &domain.Membership{
					WorkspaceID: workspaceID, UserID: userID, Role: r, CreatedAt: now,
				})
			})
			if err != nil {
				return err
			}

			log.Info().
				Str("workspace_id", workspaceID.String()).
				Str("user_id", userID.String()).
				Str("role", string(r)).
				Msg("membership granted")
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name for a new user")
	cmd.Flags().StringVar(&email, "email", "", "Email for a new user")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleOwner), "Role to grant")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newLinkCmd records a messenger account for a user so notifications are
// pushed there.
func newLinkCmd() *cobra.Command {
	var (
		user       string
		platform   string
		externalID string
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a messenger account to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			if externalID == "" {
				return errors.New("--external-id is required")
			}

			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Users().GetByID(ctx, userID); err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}
			err = store.Users().CreateMessengerLink(ctx, &domain.UserMessengerLink{
				ID:         uuid.New(),
				UserID:     userID,
				Platform:   platform,
				ExternalID: externalID,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}

			log.Info().Str("user_id", userID.String()).Str("platform", platform).Msg("messenger linked")
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&platform, "platform", "slack", "Messenger platform")
	cmd.Flags().StringVar(&externalID, "external-id", "", "User ID on the messenger platform")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newTokenCmd signs a bearer token for local development and scripting.
func newTokenCmd() *cobra.Command {
	var (
		workspace string
		user      string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a user in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workspaceID, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("--workspace: %w", err)
			}
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}

			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			tok, err := middleware.IssueToken(cfg.JWT.Secret, userID, workspaceID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
