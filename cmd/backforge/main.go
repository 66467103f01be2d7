// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"backforge/internal/core"
	"backforge/internal/generate"
	"backforge/internal/migration"
	"backforge/internal/output"
	"backforge/internal/parser"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// infoWriter returns where progress lines go. JSON output keeps stdout clean.
func infoWriter(cmd *cobra.Command, format string) io.Writer {
	if strings.EqualFold(strings.TrimSpace(format), string(output.FormatJSON)) {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func projectOptions(root string) generate.Options {
	dir := filepath.Dir(root)
	return generate.Options{
		FS:      os.DirFS(dir),
		Root:    filepath.ToSlash(filepath.Base(root)),
		BaseDir: dir,
	}
}

// printErrors writes one line per configuration error.
func printErrors(w io.Writer, err error) {
	list := core.AsList(err)
	if len(list) == 0 {
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	for _, e := range list {
		_, _ = fmt.Fprintf(w, "error: %v\n", e)
	}
}

func writeOutput(cmd *cobra.Command, format, outFile, content string) error {
	if outFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(outFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	_, _ = fmt.Fprintf(infoWriter(cmd, format), "Output saved to %s\n", outFile)
	return nil
}

func writePlan(cmd *cobra.Command, format, outFile, rollbackFile string, plan *migration.Plan) error {
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}
	formatted, err := formatter.FormatPlan(plan)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if !strings.HasSuffix(formatted, "\n") {
		formatted += "\n"
	}
	if err := writeOutput(cmd, format, outFile, formatted); err != nil {
		return err
	}
	if rollbackFile == "" {
		return nil
	}
	f, err := os.Create(rollbackFile)
	if err != nil {
		return fmt.Errorf("failed to write rollback output: %w", err)
	}
	if err := output.WriteRollback(plan, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write rollback output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write rollback output: %w", err)
	}
	_, _ = fmt.Fprintf(infoWriter(cmd, format), "Rollback saved to %s\n", rollbackFile)
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "backforge",
		Short:        "Configuration resolution and schema migration engine",
		SilenceUsage: true,
	}

	var root string
	rootCmd.PersistentFlags().StringVar(&root, "root", generate.DefaultRoot, "Path to the root configuration file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and resolve the configuration, reporting every error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := projectOptions(root)
			g, err := generate.NewRunner(opts).Resolve(cmd.Context())
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
				return fmt.Errorf("configuration is invalid")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d table(s), %d service(s)\n", len(g.Tables), len(g.Services))
			return nil
		},
	}

	var fieldFormat string
	fieldCmd := &cobra.Command{
		Use:   "field <definition>",
		Short: "Parse a field definition and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parser.Parse(args[0])
			if err != nil {
				return err
			}
			if strings.EqualFold(strings.TrimSpace(fieldFormat), string(output.FormatJSON)) {
				data, err := json.MarshalIndent(f, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), parser.Format(f))
			return nil
		},
	}
	fieldCmd.Flags().StringVarP(&fieldFormat, "format", "f", "", "Output format: json or human")

	var planSnapshot string
	var planFormat string
	var planOutFile string
	var planRollbackFile string
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the migration plan against the stored snapshot without saving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := projectOptions(root)
			opts.Snapshot = planSnapshot
			opts.AllowBreaking = true
			opts.DryRun = true
			opts.Out = infoWriter(cmd, planFormat)

			res, err := generate.Run(cmd.Context(), opts)
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
				return fmt.Errorf("plan failed")
			}
			return writePlan(cmd, planFormat, planOutFile, planRollbackFile, res.Plan)
		},
	}
	planCmd.Flags().StringVar(&planSnapshot, "snapshot", "", "Snapshot location (file path, sqlite:, mysql:// or postgres://)")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "", "Output format: human, sql, json or summary")
	planCmd.Flags().StringVarP(&planOutFile, "out", "o", "", "Output file for the plan")
	planCmd.Flags().StringVarP(&planRollbackFile, "rollback-out", "r", "", "Output file for rollback SQL (run separately)")

	var genSnapshot string
	var genFormat string
	var genOutFile string
	var genRollbackFile string
	var genAllowBreaking bool
	var genDryRun bool
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Plan the migration and save the new snapshot",
		Long: `Generate resolves the configuration, diffs it against the stored snapshot
and plans the migration. Breaking operations (dropped fields or tables, type
changes, new unique or required constraints) need --allow-breaking. The
snapshot is only saved when the plan passes and the schema changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := projectOptions(root)
			opts.Snapshot = genSnapshot
			opts.AllowBreaking = genAllowBreaking
			opts.DryRun = genDryRun
			opts.Out = infoWriter(cmd, genFormat)

			res, err := generate.Run(cmd.Context(), opts)
			if errors.Is(err, core.ErrUnconfirmedBreakingChange) {
				if werr := writePlan(cmd, genFormat, genOutFile, "", res.Plan); werr != nil {
					return werr
				}
				return fmt.Errorf("%w; use --allow-breaking to proceed", err)
			}
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
				return fmt.Errorf("generation failed")
			}
			if res.Plan.IsEmpty() {
				_, _ = fmt.Fprintln(infoWriter(cmd, genFormat), "No schema changes; no migration produced")
				return nil
			}
			return writePlan(cmd, genFormat, genOutFile, genRollbackFile, res.Plan)
		},
	}
	generateCmd.Flags().StringVar(&genSnapshot, "snapshot", "", "Snapshot location (file path, sqlite:, mysql:// or postgres://)")
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "", "Output format: human, sql, json or summary")
	generateCmd.Flags().StringVarP(&genOutFile, "out", "o", "", "Output file for the migration plan")
	generateCmd.Flags().StringVarP(&genRollbackFile, "rollback-out", "r", "", "Output file for rollback SQL (run separately)")
	generateCmd.Flags().BoolVar(&genAllowBreaking, "allow-breaking", false, "Confirm breaking operations")
	generateCmd.Flags().BoolVarP(&genDryRun, "dry-run", "d", false, "Plan without saving the snapshot")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fieldCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(generateCmd)
	return rootCmd
}
