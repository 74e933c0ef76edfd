package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"quizboard/internal/codegen"
	"quizboard/internal/config"
)

// NewCodeCmd prints a join code that is free in the configured store.
func NewCodeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "code",
		Short: "Generate an unused quiz join code",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			gen := codegen.NewGenerator(config.IntOr(cfg.Quiz.CodeAttempts, codegen.DefaultMaxAttempts))
			code, err := gen.Generate(cmd.Context(), store.QuizCodeExists)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}
