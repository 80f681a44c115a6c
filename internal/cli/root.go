package cli

import (
	"context"

	"github.com/spf13/cobra"
)

type envKey struct{}

// RootCmd assembles the trackerctl command tree.
func RootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "trackerctl",
		Short: "Administer the freelance order tracker",
		Long: `trackerctl runs schema migrations and performs administrative actions
on users, projects and client access tokens.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if env := envFrom(cmd); env != nil && env.Close != nil {
				return env.Close()
			}
			return nil
		},
	}

	root.AddCommand(MigrateCmd())
	root.AddCommand(UserCmd())
	root.AddCommand(ProjectCmd())
	root.AddCommand(TokenCmd())
	return root
}

func envFrom(cmd *cobra.Command) *Env {
	env, _ := cmd.Context().Value(envKey{}).(*Env)
	return env
}
