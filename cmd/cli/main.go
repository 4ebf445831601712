package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corebank-cli",
		Short: "CoreBank CLI tool",
		Long:  `A command line interface for interacting with the CoreBank API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the CoreBank API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(transfersCmd())
	rootCmd.AddCommand(ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var (
		currency      string
		allowNegative bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/accounts", map[string]any{
				"currency":       currency,
				"allow_negative": allowNegative,
			}, "")
		},
	}
	createCmd.Flags().StringVar(&currency, "currency", "USD", "Account currency")
	createCmd.Flags().BoolVar(&allowNegative, "allow-negative", false, "Allow a negative balance")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/accounts/" + args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/accounts")
		},
	}

	var amount, description, reference, key string
	depositCmd := &cobra.Command{
		Use:   "deposit [id]",
		Short: "Deposit into an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/accounts/"+args[0]+"/deposit", map[string]any{
				"amount":      amount,
				"description": description,
				"reference":   reference,
			}, idempotencyKey(key))
		},
	}
	depositCmd.Flags().StringVar(&amount, "amount", "", "Amount to deposit")
	depositCmd.Flags().StringVar(&description, "description", "", "Description")
	depositCmd.Flags().StringVar(&reference, "reference", "", "External reference")
	depositCmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")
	depositCmd.MarkFlagRequired("amount")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw [id]",
		Short: "Withdraw from an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/accounts/"+args[0]+"/withdraw", map[string]any{
				"amount":      amount,
				"description": description,
				"reference":   reference,
			}, idempotencyKey(key))
		},
	}
	withdrawCmd.Flags().StringVar(&amount, "amount", "", "Amount to withdraw")
	withdrawCmd.Flags().StringVar(&description, "description", "", "Description")
	withdrawCmd.Flags().StringVar(&reference, "reference", "", "External reference")
	withdrawCmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")
	withdrawCmd.MarkFlagRequired("amount")

	balanceCmd := &cobra.Command{
		Use:   "balance [id]",
		Short: "Get an account balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/accounts/" + args[0] + "/balance")
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List an account's transactions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/accounts/" + args[0] + "/transactions")
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [id]",
		Short: "Reconcile an account's balance against its journal",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/accounts/" + args[0] + "/verify")
		},
	}

	cmd.AddCommand(createCmd, getCmd, listCmd, depositCmd, withdrawCmd, balanceCmd, historyCmd, verifyCmd)
	return cmd
}

func transfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Transfer operations",
	}

	var (
		from, to, amount, currency, description, key string
		executeAt                                    string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transfer",
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{
				"source_account_id":      from,
				"destination_account_id": to,
				"amount":                 amount,
				"currency":               currency,
				"description":            description,
			}
			if executeAt != "" {
				body["execute_at"] = executeAt
			}
			post("/api/v1/transfers", body, idempotencyKey(key))
		},
	}
	createCmd.Flags().StringVar(&from, "from", "", "Source account ID")
	createCmd.Flags().StringVar(&to, "to", "", "Destination account ID")
	createCmd.Flags().StringVar(&amount, "amount", "", "Amount to transfer")
	createCmd.Flags().StringVar(&currency, "currency", "USD", "Currency")
	createCmd.Flags().StringVar(&description, "description", "", "Description")
	createCmd.Flags().StringVar(&executeAt, "execute-at", "", "RFC3339 time to schedule execution")
	createCmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")
	createCmd.MarkFlagRequired("from")
	createCmd.MarkFlagRequired("to")
	createCmd.MarkFlagRequired("amount")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a transfer",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/transfers/" + args[0])
		},
	}

	var reason string
	cancelCmd := &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a transfer that has not executed",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/transfers/"+args[0]+"/cancel", map[string]any{"reason": reason}, "")
		},
	}
	cancelCmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")

	reverseCmd := &cobra.Command{
		Use:   "reverse [id]",
		Short: "Reverse a completed transfer",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/transfers/"+args[0]+"/reverse", map[string]any{"description": description}, idempotencyKey(key))
		},
	}
	reverseCmd.Flags().StringVar(&description, "description", "", "Description")
	reverseCmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")

	cmd.AddCommand(createCmd, getCmd, cancelCmd, reverseCmd)
	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger-wide consistency",
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/ledger/consistency")
		},
	}

	cmd.AddCommand(consistencyCmd)
	return cmd
}

// idempotencyKey returns the user's key, or a fresh ULID so every CLI
// invocation is its own operation.
func idempotencyKey(key string) string {
	if key != "" {
		return key
	}
	return "cli-" + ulid.Make().String()
}

func get(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func post(path string, body map[string]any, key string) {
	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func printResponse(resp *http.Response) {
	raw, _ := io.ReadAll(resp.Body)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Write(raw)
	}

	fmt.Printf("Status: %d\n%s\n", resp.StatusCode, pretty.String())

	if resp.StatusCode >= http.StatusBadRequest {
		os.Exit(1)
	}
}
