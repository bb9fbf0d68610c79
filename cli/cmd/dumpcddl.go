package cmd

import (
	"errors"
	"os"

	"github.com/alecthomas/repr"
	"github.com/spf13/cobra"

	"github.com/datapact/cddl"
)

var (
	dumpCddlFile string

	dumpCddlCmd = &cobra.Command{
		Use:   "dump-cddl",
		Short: "Dump the CDDL AST in debug form to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dumpCddlFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --cddl")
			}
			buf, err := os.ReadFile(dumpCddlFile)
			if err != nil {
				return err
			}
			doc, err := cddl.ParseToAST(string(buf))
			if err != nil {
				return err
			}
			repr.Println(doc.WithoutPos())
			return nil
		},
	}
)

func init() {
	dumpCddlCmd.Flags().StringVarP(&dumpCddlFile, "cddl", "c", "", "CDDL input file")
	rootCmd.AddCommand(dumpCddlCmd)
}
