package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-nav-guide/internal/llm"
)

var knownBackends = []string{llm.BackendGroq, llm.BackendOpenAI, llm.BackendGemini}

func checkBackend(name string) error {
	if !slices.Contains(knownBackends, name) {
		return fmt.Errorf("%w: %q (known: %v)", llm.ErrUnknownBackend, name, knownBackends)
	}
	return nil
}

func newKeyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage backend API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <backend> <key>",
		Short: "Store the API key for a backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkBackend(args[0]); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetKey(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s saved\n", bold(args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <backend>",
		Short: "Report whether a key is stored for a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkBackend(args[0]); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cred, err := store.Key(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status := gray("not set")
			if cred.Present() {
				status = "set"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], status)
			return nil
		},
	})

	return cmd
}

func newModelCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Select the model backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use <backend>",
		Short: "Select the backend used for queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkBackend(args[0]); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetSelectedBackend(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", bold(args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			name, ok, err := store.SelectedBackend(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", llm.DefaultBackend, gray("(default)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	})

	return cmd
}
