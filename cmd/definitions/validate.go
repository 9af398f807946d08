package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildValidateCmd(root *rootOptions) *cobra.Command {
	var account string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Loads the definitions of an account and reports what they declare",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := root.loader().Load(cmd.Context(), account)
			if err != nil {
				return err
			}

			metrics := 0
			for _, ms := range def.MetricSets {
				metrics += len(ms.Metrics)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s: %d metric sets, %d metrics, %d sla sets, %d slas\n",
				account, len(def.MetricSets), metrics, len(def.SLASets), len(def.SLAs()))
			return err
		},
	}

	validateCmd.Flags().StringVarP(&account, "account", "a", "", "Account ID")
	_ = validateCmd.MarkFlagRequired("account")

	return validateCmd
}
