package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fingram/internal/auth"
	"fingram/internal/cli"
	"fingram/internal/tui"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()

	root := &cobra.Command{
		Use:   "fingram",
		Short: "Personal finance client for the Fingram vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newLoginCmd(), newLogoutCmd(), newShareCmd(), newVersionCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runTUI(ctx context.Context) error {
	components, err := cli.Bootstrap(ctx)
	defer func() {
		if components != nil {
			components.Close()
		}
	}()
	if err != nil {
		return err
	}

	app := tui.NewApp(
		components.Resolver,
		components.Selector,
		components.Sync,
		components.Conversation,
		components.Env,
		components.Logger,
	)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	components.Resolver.Subscribe(func(st auth.State) {
		program.Send(tui.AuthStateChanged(st))
	})
	if !components.Config.UseMock {
		go components.Resolver.Start(ctx)
	}

	_, err = program.Run()
	return err
}

func newLoginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a vault access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			components, err := cli.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer components.Close()

			if err := components.Resolver.AuthenticateWithVaultToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Println("authenticated")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "vault access token")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := cli.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer components.Close()

			components.Resolver.Logout(cmd.Context())
			fmt.Println("logged out")
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share-link",
		Short: "Generate a one-time access link for this vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := cli.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer components.Close()

			components.Resolver.Start(cmd.Context())
			link, err := components.Resolver.RequestShareLink(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(link)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fingram", version)
		},
	}
}
