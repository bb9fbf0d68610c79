package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/datapact/cddl/validator"
)

var (
	compileJSONFile string

	compileJSONCmd = &cobra.Command{
		Use:   "compile-json",
		Short: "Check that a JSON file is well-formed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if compileJSONFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --json")
			}
			buf, err := os.ReadFile(compileJSONFile)
			if err != nil {
				return err
			}
			if _, err := validator.DecodeJSON(string(buf)); err != nil {
				failureln("%s is not well-formed. %s", compileJSONFile, err.Error())
				return errors.New("compilation failed")
			}
			successln("%s is well-formed", compileJSONFile)
			return nil
		},
	}
)

func init() {
	compileJSONCmd.Flags().StringVarP(&compileJSONFile, "json", "j", "", "JSON input file")
	rootCmd.AddCommand(compileJSONCmd)
}
