package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/newthinker/nurexia/internal/app"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/format"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Send a prompt to a provider",
	Long: `Send a prompt to a provider and print the reply. The prompt is taken from
the arguments, or from standard input when no arguments are given.`,
	Example: `  nurexia run "Explain goroutines"
  nurexia run -p openai --model gpt-4o -f markdown "Summarize RFC 9110"
  echo "hi" | nurexia run --stream`,
	RunE: runRun,
}

var (
	runMode        string
	runProvider    string
	runModel       string
	runFormat      string
	runVerbose     bool
	runTemperature float64
	runStream      bool
	runWorkspace   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runMode, "mode", "m", "", "operation mode: chat, agent or edit (default from config)")
	f.StringVarP(&runProvider, "provider", "p", "", "LLM provider (default from config)")
	f.StringVar(&runModel, "model", "", "model ID (default: provider default)")
	f.StringVarP(&runFormat, "format", "f", "", "output format: text, json or markdown (default from config)")
	f.BoolVarP(&runVerbose, "verbose", "v", false, "show error details and debug logs")
	f.Float64VarP(&runTemperature, "temperature", "t", 0, "sampling temperature 0.0-2.0 (default from config)")
	f.BoolVarP(&runStream, "stream", "s", false, "print the reply as it is generated")
	f.StringVarP(&runWorkspace, "workspace", "w", "", "working directory (default: current directory)")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withApp(runVerbose, func(a *app.App, log *zap.Logger) error {
		outFormat := runFormat
		if outFormat == "" {
			outFormat = a.Config().Defaults.Format
		}
		if !format.Valid(outFormat) {
			return core.NewError(core.ErrValidation,
				fmt.Sprintf("unknown output format %q (expected text, json or markdown)", outFormat), nil)
		}

		req := app.Request{
			Provider:         runProvider,
			Model:            runModel,
			Mode:             runMode,
			Verbose:          runVerbose,
			WorkingDirectory: runWorkspace,
		}
		if prompt != "" {
			req.Messages = []core.Message{{Role: core.RoleUser, Content: prompt}}
		}
		if cmd.Flags().Changed("temperature") {
			req.Temperature = &runTemperature
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		var s *core.State
		if runStream && outFormat == format.Text {
			s = streamTo(ctx, a, req, out)
		} else {
			s = a.Run(ctx, req)
		}

		if s.Failed() {
			fmt.Fprintln(cmd.ErrOrStderr(), format.Error(s.Error, runVerbose, s.Meta(core.MetaErrorDetail)))
			return errReported
		}
		log.Debug("run finished",
			zap.String("run_id", s.Meta(core.MetaRunID)),
			zap.String("provider", s.Provider),
			zap.String("model", s.Model),
		)
		if runStream && outFormat == format.Text {
			fmt.Fprintln(out)
			return nil
		}
		return printResult(out, s.Result, outFormat)
	})
}

// streamTo writes fragments to out as they arrive and returns the
// terminal state.
func streamTo(ctx context.Context, a *app.App, req app.Request, out io.Writer) *core.State {
	s, stream, err := a.Stream(ctx, req)
	if err != nil {
		return s
	}
	defer stream.Close()

	for {
		fragment, err := stream.Recv()
		if err != nil {
			return s
		}
		if _, err := io.WriteString(out, fragment); err != nil {
			return s
		}
	}
}

func printResult(out io.Writer, text, outFormat string) error {
	var (
		rendered string
		err      error
	)
	if f, ok := out.(*os.File); ok {
		rendered, err = format.ForTerminal(f, text, outFormat)
	} else {
		rendered, err = format.Output(text, outFormat)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, strings.TrimSuffix(rendered, "\n"))
	return err
}

// readPrompt joins args, or reads piped standard input when there are none.
func readPrompt(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if f, ok := in.(*os.File); ok && format.IsTerminal(f) {
		return "", nil
	}
	b, err := io.ReadAll(in)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading prompt: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
