package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"orders-gateway/internal/credential"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage per-wallet exchange API credentials",
	}
	cmd.AddCommand(newCredentialsPutCmd(), newCredentialsListCmd(), newCredentialsDeleteCmd())
	return cmd
}

func newCredentialsPutCmd() *cobra.Command {
	var (
		apiKey    string
		apiSecret string
		password  string
		extras    []string
	)

	cmd := &cobra.Command{
		Use:   "put <wallet> <exchange>",
		Short: "Create or replace a wallet's credential for one exchange",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseExtraFields(extras)
			if err != nil {
				return err
			}

			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			if registry := rt.app.Registry(); !registry.Supports(args[1]) {
				return fmt.Errorf("unsupported exchange %q, registered: %s", args[1], strings.Join(registry.IDs(), ", "))
			}

			cred := credential.UserExchangeCredential{
				ExchangeID:  args[1],
				APIKey:      apiKey,
				APISecret:   apiSecret,
				Password:    password,
				ExtraFields: fields,
			}
			if err := rt.app.Credentials().PutCredential(context.Background(), args[0], cred); err != nil {
				return err
			}
			fmt.Printf("saved %s credential for wallet %s\n", credential.NormalizeExchangeID(args[1]), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key")
	cmd.Flags().StringVar(&apiSecret, "secret", "", "API secret")
	cmd.Flags().StringVar(&password, "password", "", "API passphrase, if the exchange needs one")
	cmd.Flags().StringArrayVar(&extras, "extra", nil, "extra field as Name=Value, repeatable (e.g. Subaccount=main)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func newCredentialsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [wallet]",
		Short: "List wallets, or one wallet's exchanges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()
			ctx := context.Background()

			if len(args) == 0 {
				wallets, err := rt.app.Credentials().ListWallets(ctx)
				if err != nil {
					return err
				}
				for _, w := range wallets {
					fmt.Println(w)
				}
				return nil
			}

			creds, err := rt.app.Credentials().GetUserAPIKeys(ctx, args[0])
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Exchange", "API Key", "Extra Fields"}),
			)
			for _, c := range creds {
				names := make([]string, 0, len(c.ExtraFields))
				for _, f := range c.ExtraFields {
					names = append(names, f.FieldName)
				}
				table.Append([]string{c.ExchangeID, maskKey(c.APIKey), strings.Join(names, ",")})
			}
			table.Render()
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <wallet> <exchange>",
		Short: "Delete a wallet's credential for one exchange",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			deleted, err := rt.app.Credentials().DeleteCredential(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("wallet %s has no %s credential", args[0], args[1])
			}
			fmt.Printf("deleted %s credential for wallet %s\n", credential.NormalizeExchangeID(args[1]), args[0])
			return nil
		},
	}
}

// parseExtraFields 解析 Name=Value 形式的附加字段，保留输入顺序。
func parseExtraFields(raw []string) ([]credential.ExtraField, error) {
	fields := make([]credential.ExtraField, 0, len(raw))
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --extra %q, want Name=Value", item)
		}
		fields = append(fields, credential.ExtraField{FieldName: strings.TrimSpace(name), Value: value})
	}
	return fields, nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
