package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/datapact/cddl"
)

var (
	validateCborCddlFile string
	validateCborFile     string
	validateCborTypename string

	validateCborCmd = &cobra.Command{
		Use:   "validate-cbor",
		Short: "Validate a CBOR document against a CDDL definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if validateCborCddlFile == "" || validateCborFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --cddl and --cbor")
			}
			cddlBuf, err := os.ReadFile(validateCborCddlFile)
			if err != nil {
				return err
			}
			cborBuf, err := os.ReadFile(validateCborFile)
			if err != nil {
				return err
			}
			err = cddl.ValidateCBORNamed(string(cddlBuf), validateCborTypename, cborBuf)
			if err != nil {
				failureln("Validation failed. %s", err.Error())
				return errors.New("validation failed")
			}
			successln("Validation successful")
			return nil
		},
	}
)

func init() {
	validateCborCmd.Flags().StringVarP(&validateCborCddlFile, "cddl", "c", "", "CDDL input file")
	validateCborCmd.Flags().StringVarP(&validateCborFile, "cbor", "b", "", "CBOR input file")
	validateCborCmd.Flags().StringVar(&validateCborTypename, "typename", "", "rule name to validate against (default: first rule)")
	rootCmd.AddCommand(validateCborCmd)
}
