package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/format"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "nurexia",
	Short: "Nurexia - one conversational interface to many LLM providers",
	Long: `Nurexia sends conversations to Anthropic, OpenAI, Google, Hugging Face
or a local Ollama server through a single command line and HTTP gateway.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, format.Error(errorMessage(err), debug, err.Error()))
		}
		os.Exit(1)
	}
}

// errorMessage returns the user-facing part of err.
func errorMessage(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
