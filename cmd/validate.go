// File: cmd/validate.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/crosscheck-cli/internal/config"
	"github.com/xkilldash9x/crosscheck-cli/internal/orchestrator"
)

func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and matrix and print the step plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runValidate(cfg, cmd.OutOrStdout())
		},
	}
	validateCmd.Flags().StringP("matrix", "m", "", "Scenario matrix YAML file. Defaults to the built-in matrix.")
	return validateCmd
}

// runValidate prints the resolved matrix followed by every scenario's steps.
// Steps excluded by their condition are marked and will not be recorded.
func runValidate(cfg *config.Config, out io.Writer) error {
	matrix, err := loadMatrix(cfg)
	if err != nil {
		return err
	}

	doc, err := yaml.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("failed to render matrix: %w", err)
	}
	if _, err := out.Write(doc); err != nil {
		return err
	}

	for i, plan := range orchestrator.Plan(cfg, matrix) {
		fmt.Fprintf(out, "\n# scenario %d: %s\n", i, matrix[i].Action())
		for _, step := range plan {
			marker := "+"
			if !step.Included {
				marker = "-"
			}
			fmt.Fprintf(out, "%s %-28s %s\n", marker, step.ID, step.Name)
		}
	}
	return nil
}
