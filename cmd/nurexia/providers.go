package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/nurexia/internal/app"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Provider operations",
	Long:  `Commands for listing providers and checking their credentials.`,
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers, their default models and catalogs",
	RunE:  runProvidersList,
}

var providersTestCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Check credentials and reachability of one or all providers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProvidersTest,
}

var (
	providersOutput string
	providersModel  string
)

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersTestCmd)

	providersListCmd.Flags().StringVarP(&providersOutput, "output", "o", "text", "output format: text, json or yaml")
	providersTestCmd.Flags().StringVar(&providersModel, "model", "", "model to test against (default: provider default)")
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	return withApp(false, func(a *app.App, log *zap.Logger) error {
		return writeCapabilities(cmd.OutOrStdout(), sortedCapabilities(a.Providers()), providersOutput)
	})
}

func runProvidersTest(cmd *cobra.Command, args []string) error {
	return withApp(false, func(a *app.App, log *zap.Logger) error {
		names := args
		if len(names) == 0 {
			names = a.Registry().Names()
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, name := range names {
			ok, msg := a.TestConnection(context.Background(), name, providersModel)
			mark := "✓"
			if !ok {
				mark = "✗"
				failed++
			}
			fmt.Fprintf(out, "%s %s: %s\n", mark, name, msg)
		}
		if failed > 0 {
			return errReported
		}
		return nil
	})
}

func sortedCapabilities(caps map[string]llm.Capabilities) []llm.Capabilities {
	list := make([]llm.Capabilities, 0, len(caps))
	for _, c := range caps {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func writeCapabilities(out io.Writer, list []llm.Capabilities, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "text", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDEFAULT MODEL\tSTREAMING\tMODELS\t")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t\n", c.Name, c.DefaultModel, c.Streaming, strings.Join(c.Models, ", "))
		}
		return w.Flush()
	}
	return core.NewError(core.ErrValidation,
		fmt.Sprintf("unknown output %q (expected text, json or yaml)", output), nil)
}
