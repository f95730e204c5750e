package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"finsight/internal/tui"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with your finances in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, sessions, err := buildEngine()
			if err != nil {
				return err
			}
			defer func() { _ = sessions.Close() }()

			if err := sessions.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to migrate session store: %w", err)
			}

			return tui.Run(cmd.Context(), eng, uuid.NewString())
		},
	}
}
