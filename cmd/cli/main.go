package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/dealsync/internal/adapter/http/dto"
	"github.com/iho/dealsync/internal/infrastructure/postgres"
)

type cliOptions struct {
	baseURL string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "dealsync-cli",
		Short:         "Dealsync CLI tool",
		Long:          `A command line interface for triggering and inspecting deal syncs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the dealsync API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Request timeout")

	rootCmd.AddCommand(syncCmd(opts), runsCmd(opts), referencesCmd(opts), migrateCmd())

	return rootCmd
}

func syncCmd(opts *cliOptions) *cobra.Command {
	var (
		companyID      int64
		from, to       string
		dryRun         bool
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync for one company and date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(dto.SyncRequest{DateFrom: from, DateTo: to, DryRun: dryRun})
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				fmt.Sprintf("%s/api/v1/companies/%d/sync", opts.baseURL, companyID), bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			if idempotencyKey != "" {
				req.Header.Set("Idempotency-Key", idempotencyKey)
			}

			var report dto.SyncReportResponse
			if err := doJSON(opts, req, &report); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: selected=%d excluded=%d created=%d updated=%d skipped=%d deleted=%d errors=%d\n",
				report.RunID, report.Selected, report.Excluded, report.Created, report.Updated,
				report.Skipped, report.Deleted, report.ErrorCount)
			for _, e := range report.Errors {
				fmt.Fprintf(out, "  %s: %s\n", e.ExternalIdentity, e.Message)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&companyID, "company", 0, "Company ID")
	cmd.Flags().StringVar(&from, "from", "", "First issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last issue date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing them")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runsCmd(opts *cliOptions) *cobra.Command {
	var (
		companyID     int64
		limit, offset int
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs of a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/v1/companies/%d/sync-runs?limit=%s&offset=%s",
				opts.baseURL, companyID, strconv.Itoa(limit), strconv.Itoa(offset))

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			var runs []dto.SyncRunResponse
			if err := doJSON(opts, req, &runs); err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tRANGE\tCREATED\tUPDATED\tDELETED\tERRORS\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.Status, r.DateFrom, r.DateTo, r.Created, r.Updated, r.Deleted, r.ErrorCount,
					truncate(r.ErrorMessage, 40))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&companyID, "company", 0, "Company ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func referencesCmd(opts *cliOptions) *cobra.Command {
	refCmd := &cobra.Command{
		Use:   "references",
		Short: "Reference name cache operations",
	}

	refCmd.AddCommand(&cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached partner, account item and tag name",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				opts.baseURL+"/api/v1/reference-cache/invalidate", nil)
			if err != nil {
				return err
			}

			var result map[string]string
			if err := doJSON(opts, req, &result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reference cache %s\n", result["status"])
			return nil
		},
	})

	return refCmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations-path", "", "Directory of migration files (embedded set when empty)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if databaseURL == "" {
					return fmt.Errorf("--database-url is required")
				}
				return postgres.RunMigrations(databaseURL, migrationsPath)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				if databaseURL == "" {
					return fmt.Errorf("--database-url is required")
				}
				return postgres.RunMigrationsDown(databaseURL, migrationsPath)
			},
		},
	)

	return cmd
}

// doJSON sends req and decodes a 2xx body into out. Other statuses become
// errors carrying the server's message.
func doJSON(opts *cliOptions, req *http.Request, out any) error {
	client := &http.Client{Timeout: opts.timeout}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
