package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func buildAccountsCmd(root *rootOptions) *cobra.Command {
	var account string

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Prints the central account, streamers and catalogs of an account's group",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := root.registry()
			if err != nil {
				return err
			}

			central, err := registry.Central(account)
			if err != nil {
				return err
			}
			streamers, err := registry.Streamers(account)
			if err != nil {
				return err
			}
			catalogs, err := registry.Catalogs(account)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "central: %s\nstreamers: %s\ncatalogs: %s\n",
				central, strings.Join(streamers, ","), strings.Join(catalogs, ","))
			return err
		},
	}

	accountsCmd.Flags().StringVarP(&account, "account", "a", "", "Account ID")
	_ = accountsCmd.MarkFlagRequired("account")

	return accountsCmd
}
