package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/sms"
)

func smsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms",
		Short: "SMS transport operations",
	}

	var body string
	test := &cobra.Command{
		Use:   "test [to]",
		Short: "Send a test message to an E.164 number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sender, err := sms.New(cfg.SMS)
			if err != nil {
				return err
			}

			sid, err := sender.Send(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent via %s: %s\n", sender.Name(), sid)
			return nil
		},
	}
	test.Flags().StringVarP(&body, "body", "b", "TaskFlow test message", "message body")
	cmd.AddCommand(test)

	return cmd
}
