package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/datapact/cddl"
)

var (
	validateCddlFile string
	validateJSONFile string

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate a JSON document against a CDDL definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if validateCddlFile == "" || validateJSONFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --cddl and --json")
			}
			cddlBuf, err := os.ReadFile(validateCddlFile)
			if err != nil {
				return err
			}
			jsonBuf, err := os.ReadFile(validateJSONFile)
			if err != nil {
				return err
			}
			if err := cddl.ValidateJSONFromString(string(cddlBuf), string(jsonBuf)); err != nil {
				failureln("Validation failed. %s", err.Error())
				return errors.New("validation failed")
			}
			successln("Validation successful")
			return nil
		},
	}
)

func init() {
	validateCmd.Flags().StringVarP(&validateCddlFile, "cddl", "c", "", "CDDL input file")
	validateCmd.Flags().StringVarP(&validateJSONFile, "json", "j", "", "JSON input file")
	rootCmd.AddCommand(validateCmd)
}
