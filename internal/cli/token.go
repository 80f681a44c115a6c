package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage client access tokens and freelancer API tokens",
	}
	cmd.AddCommand(tokenRegenerateCmd(), tokenRevokeCmd(), tokenIssueJWTCmd())
	return cmd
}

func tokenRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate [project-id]",
		Short: "Replace a project's client access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			p, err := envFrom(cmd).Tracker.RegenerateToken(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to regenerate token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s New access token for %s\n", ok(), p.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p.AccessToken.String)
			return nil
		},
	}
}

func tokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [project-id]",
		Short: "Disable client access to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if _, err := envFrom(cmd).Tracker.RevokeToken(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to revoke token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Revoked access token for %s\n", color.New(color.FgYellow).Sprint("!"), id)
			return nil
		},
	}
}

func tokenIssueJWTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt [user-id]",
		Short: "Sign a freelancer API token with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			if env.Config == nil || env.Config.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			if _, err := env.Store.GetUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}

			ttl, _ := cmd.Flags().GetDuration("ttl")
			now := time.Now()
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   id.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			}).SignedString([]byte(env.Config.JWTSecret))
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
