package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/drai/internal/output"
	"github.com/bimmerbailey/drai/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Parse raw model output into diagnosis and treatment plan",
	Long: `Parse runs the response parser over raw model output and prints the
structured result. Input is read from stdin when no file is given; "-" also
means stdin. Glob patterns are expanded.

Examples:
  drai parse answer.txt
  drai parse 'answers/*.txt' --format table
  ollama run medllama2 "..." | drai parse --format json`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	files, err := expandInputs(args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), viper.GetString("log.format"))
	p := parser.New(parser.WithObserver(parser.LogObserver(logger)))

	format := output.ParseFormat(viper.GetString("format"))
	w := output.New(cmd.OutOrStdout(), format, colorMode(cmd))
	multi := len(files) > 1

	for i, name := range files {
		raw, err := readInput(cmd, name)
		if err != nil {
			return err
		}
		logger.Debug("parsing model output", "source", name, "bytes", len(raw))

		if multi && format != output.FormatJSON {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", name)
		}
		if err := w.WriteResult(p.Parse(raw)); err != nil {
			return err
		}
	}
	return nil
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == stdinName {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(raw), nil
}

// colorMode reads the --color flag, which tests may not define.
func colorMode(cmd *cobra.Command) output.ColorMode {
	s, err := cmd.Flags().GetString("color")
	if err != nil {
		return output.ColorAuto
	}
	return output.ParseColorMode(s)
}
