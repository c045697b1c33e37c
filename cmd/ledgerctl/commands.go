package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"campuscoin/internal/model"

	"github.com/spf13/cobra"
)

// errDiscrepancies 以退出码 2 结束，便于在定时任务中告警
var errDiscrepancies = errors.New("发现账户余额与流水不一致")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "自动迁移表结构",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrate ok")
			return nil
		},
	}
}

func newGrantCmd() *cobra.Command {
	var amount int64
	cmd := &cobra.Command{
		Use:   "grant <teacher-id>",
		Short: "给教师发放硬币",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Exchange.GrantCoins(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "发放数量，必须大于 0")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "查询账户余额",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			account, err := a.Accounts.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\n", account.ID, account.Kind, account.Name, account.Balance)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "按学生、教师或企业查询流水",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var entries []*model.TransactionEntry
			switch kind {
			case "student":
				entries, err = a.History.StudentEntries(ctx, args[0])
			case "teacher":
				entries, err = a.History.TeacherEntries(ctx, args[0])
			case "company":
				entries, err = a.History.CompanyEntries(ctx, args[0])
			default:
				return fmt.Errorf("--kind 只能是 student、teacher 或 company: %q", kind)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "student", "student | teacher | company")
	return cmd
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "用流水重算所有账户余额并报告不一致",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			discrepancies, err := a.Audit.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if len(discrepancies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ledger consistent")
				return nil
			}
			if err := printJSON(cmd, discrepancies); err != nil {
				return err
			}
			return fmt.Errorf("%w: %d", errDiscrepancies, len(discrepancies))
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
