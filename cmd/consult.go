package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/drai/internal/cache"
	"github.com/bimmerbailey/drai/internal/consultation"
	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/output"
	"github.com/bimmerbailey/drai/internal/parser"
	"github.com/bimmerbailey/drai/internal/record"
	"github.com/bimmerbailey/drai/internal/store"
)

var consultCmd = &cobra.Command{
	Use:   "consult <question> --record <file>",
	Short: "Ask the model a question about a patient record file",
	Long: `Consult builds the consultation prompt from a JSON medical record,
sends it to the configured model and prints the parsed answer. Nothing is
stored.

Examples:
  drai consult --record patient.json "Why do I wheeze at night?"
  drai consult --record patient.json --stream "Is my dose too high?"`,
	Args: cobra.ExactArgs(1),
	RunE: runConsult,
}

func init() {
	consultCmd.Flags().StringP("record", "r", "", "medical record JSON file (required)")
	consultCmd.Flags().Bool("stream", false, "print model output as it arrives")

	_ = consultCmd.MarkFlagRequired("record")

	rootCmd.AddCommand(consultCmd)
}

func runConsult(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return consultation.ErrEmptyQuestion
	}
	recordFile, _ := cmd.Flags().GetString("record")
	stream, _ := cmd.Flags().GetBool("stream")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Format)

	rec, err := readRecordFile(recordFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w\n\nTroubleshooting:\n- Ensure Ollama is running: ollama serve\n- Check provider config in ~/.drai.yaml", err)
	}
	if err := provider.Heartbeat(ctx); err != nil {
		return fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve",
			cfg.LLM.Ollama.Host, err)
	}

	svc, err := consultation.New(store.NewMemory(), cache.Nop{}, provider, serviceConfig(cfg), logger,
		consultation.WithRedactor(newRedactor(cfg)))
	if err != nil {
		return err
	}

	format := output.ParseFormat(cfg.Format)
	out := cmd.OutOrStdout()

	var res parser.Result
	if stream {
		onChunk := func(string) {}
		if format == output.FormatText {
			fmt.Fprintln(out, "=== Model output ===")
			fmt.Fprintln(out)
			onChunk = func(s string) { fmt.Fprint(out, s) }
		}
		res, err = svc.AskStream(ctx, rec.PatientContext(), question, onChunk)
		if format == output.FormatText {
			fmt.Fprint(out, "\n\n=== Parsed ===\n\n")
		}
	} else {
		res, err = svc.Ask(ctx, rec.PatientContext(), question)
	}
	if err != nil {
		return err
	}

	return output.New(out, format, colorMode(cmd)).WriteResult(res)
}

func readRecordFile(path string) (*record.MedicalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	var rec record.MedicalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}
