package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/auth"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "branchledger-cli",
		Short:         "BranchLedger CLI tool",
		Long:          `A command line interface for interacting with the BranchLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the BranchLedger API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("BRANCHLEDGER_TOKEN"), "Bearer token for authenticated servers")

	root.AddCommand(balancesCmd(), transfersCmd(), ratesCmd(), ledgerCmd(), tokenCmd())
	return root
}

// apiClient performs JSON requests against the API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, apiErr.Error, apiErr.Message)
			}
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances <branch>",
		Short: "Show the account balances of a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			path := "/api/v1/branches/" + url.PathEscape(args[0]) + "/accounts"
			if err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACCOUNT\tCURRENCY\tBALANCE")
			for _, a := range resp.Accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Currency, a.Balance.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func transfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Inter-branch fund transfer operations",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List pending fund transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp []*dto.FundTransferResponse
			if err := newClient().do(cmd.Context(), http.MethodGet, "/api/v1/fund-transfers/?status=pending", nil, &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO\tACCOUNT\tAMOUNT\tSOURCE")
			for _, t := range resp {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\n",
					t.ID, t.FromBranchID, t.ToBranchID, t.AccountType,
					t.Amount.StringFixed(2), t.Currency, truncate(t.SourceModule+":"+t.SourceID, 24))
			}
			return tw.Flush()
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Summarize pending transfers by account type and currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp []dto.PendingGroupResponse
			if err := newClient().do(cmd.Context(), http.MethodGet, "/api/v1/fund-transfers/summary", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	var notes string
	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a pending fund transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.CompleteTransferResponse
			path := "/api/v1/fund-transfers/" + url.PathEscape(args[0]) + "/complete"
			if err := newClient().do(cmd.Context(), http.MethodPost, path, dto.CompleteTransferRequest{Notes: notes}, &resp); err != nil {
				return err
			}
			if resp.AlreadyCompleted {
				fmt.Fprintf(cmd.OutOrStdout(), "transfer %s was already completed\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transfer %s completed\n", args[0])
			return nil
		},
	}
	complete.Flags().StringVar(&notes, "notes", "", "Completion notes")

	var batch dto.CompleteBatchRequest
	completeBatch := &cobra.Command{
		Use:   "complete-batch",
		Short: "Complete every pending transfer of one account type and currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.CompleteBatchResponse
			if err := newClient().do(cmd.Context(), http.MethodPost, "/api/v1/fund-transfers/complete-batch", batch, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "completed: %d, failed: %d\n", len(resp.Completed), len(resp.Failed))
			for _, f := range resp.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", f.TransferID, f.Error)
			}
			if len(resp.Failed) > 0 {
				return fmt.Errorf("%d transfers failed", len(resp.Failed))
			}
			return nil
		},
	}
	completeBatch.Flags().StringVar(&batch.AccountType, "account-type", "", "Account type of the group (required)")
	completeBatch.Flags().StringVar(&batch.Currency, "currency", "", "Currency of the group (required)")
	completeBatch.Flags().StringVar(&batch.Notes, "notes", "", "Completion notes")
	_ = completeBatch.MarkFlagRequired("account-type")
	_ = completeBatch.MarkFlagRequired("currency")

	cmd.AddCommand(pending, summary, complete, completeBatch)
	return cmd
}

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "VES per USD exchange rate operations",
	}

	add := &cobra.Command{
		Use:   "add <date> <rate>",
		Short: "Record the rate in effect from date on",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"date": args[0], "rate": args[1]}
			var resp dto.RateResponse
			if err := newClient().do(cmd.Context(), http.MethodPost, "/api/v1/exchange-rates/", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Date, resp.Rate.String())
			return nil
		},
	}

	resolve := &cobra.Command{
		Use:   "resolve [date]",
		Short: "Show the rate in effect on date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/exchange-rates/resolve"
			if len(args) == 1 {
				path += "?date=" + url.QueryEscape(args[0])
			}
			var resp dto.RateResponse
			if err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			if resp.Rate.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s no rate recorded\n", resp.Date)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Date, resp.Rate.String())
			return nil
		},
	}

	cmd.AddCommand(add, resolve)
	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var branch string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Check recorded balances against the ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/ledger/reconciliation"
			if branch != "" {
				path += "?branch=" + url.QueryEscape(branch)
			}
			var resp dto.ReconciliationReportResponse
			if err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			if len(resp.Discrepancies) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Reconciliation PASSED: %d/%d accounts reconciled\n",
					resp.ReconciledAccounts, resp.TotalAccounts)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reconciliation FAILED: %d/%d accounts reconciled\n",
				resp.ReconciledAccounts, resp.TotalAccounts)
			if err := printJSON(cmd.OutOrStdout(), resp.Discrepancies); err != nil {
				return err
			}
			return fmt.Errorf("%d accounts out of balance", len(resp.Discrepancies))
		},
	}
	reconcile.Flags().StringVar(&branch, "branch", "", "Only reconcile this branch")

	cmd.AddCommand(reconcile)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token operations",
	}

	var (
		secret string
		ttl    time.Duration
		actor  domain.Actor
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for an operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
			}
			if actor.ID == "" {
				return fmt.Errorf("--actor-id is required")
			}
			signed, err := auth.NewJWTManager(secret, ttl).Generate(&actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	issue.Flags().StringVar(&actor.ID, "actor-id", "", "Operator ID")
	issue.Flags().StringVar(&actor.Name, "name", "", "Operator name")
	issue.Flags().StringVar(&actor.Role, "role", domain.RoleOperator, "Role: admin, operator or viewer")

	cmd.AddCommand(issue)
	return cmd
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
