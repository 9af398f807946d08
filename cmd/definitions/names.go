package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildAlarmNamesCmd(root *rootOptions) *cobra.Command {
	var account, region string

	namesCmd := &cobra.Command{
		Use:   "alarm-names",
		Short: "Prints the alarm name and metric identity of every SLA of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := root.loader().Load(cmd.Context(), account)
			if err != nil {
				return err
			}

			for _, sla := range def.SLAs() {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					sla.AlarmName(region), sla.Metric.UniqueID(), sla.Metric.WidgetTitle())
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	namesCmd.Flags().StringVarP(&account, "account", "a", "", "Account ID")
	namesCmd.Flags().StringVarP(&region, "region", "r", "us-east-1", "Region the alarms are deployed in")
	_ = namesCmd.MarkFlagRequired("account")

	return namesCmd
}
