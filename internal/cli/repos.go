package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cellar/internal/config"
)

func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage configured repositories",
	}
	cmd.AddCommand(newReposListCmd(), newReposAddCmd(), newReposRemoveCmd())
	return cmd
}

func newReposListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if len(cfg.Repositories) == 0 {
				fmt.Printf("%s No repositories configured\n", dim("○"))
				return nil
			}

			for _, r := range cfg.Repositories {
				fmt.Printf("%s %s\n  %s %s\n", green("●"), bold(r.Name), cyan("uri:"), r.URI)
			}
			return nil
		},
	}
}

func newReposAddCmd() *cobra.Command {
	var r config.Repository

	cmd := &cobra.Command{
		Use:   "add <name> <uri>",
		Short: "Add a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			r.Name, r.URI = args[0], args[1]
			if err := cfg.AddRepo(r); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			fmt.Printf("%s added %s\n", green("✓"), bold(r.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&r.Token, "token", "", "Bearer token for HTTP repositories")
	cmd.Flags().StringVar(&r.IdentityFile, "identity", "", "SSH identity file")
	cmd.Flags().StringVar(&r.CACert, "ca-cert", "", "Custom CA certificate for HTTPS")
	cmd.Flags().BoolVar(&r.Insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().StringVar(&r.SMBUser, "smb-user", "", "SMB username")
	cmd.Flags().StringVar(&r.SMBPassword, "smb-password", "", "SMB password")
	return cmd
}

func newReposRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := cfg.RemoveRepo(args[0]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			fmt.Printf("%s removed %s\n", green("✓"), bold(args[0]))
			return nil
		},
	}
}
