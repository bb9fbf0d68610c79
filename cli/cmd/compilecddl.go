package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/datapact/cddl"
)

var (
	compileCddlFile string
	compileCddlDir  string

	compileCddlCmd = &cobra.Command{
		Use:   "compile-cddl",
		Short: "Check a CDDL file (or a directory of *.cddl files) against RFC 8610",
		RunE: func(cmd *cobra.Command, args []string) error {
			if compileCddlDir != "" {
				logger := logrus.StandardLogger()
				files, err := cddl.CompileFilesystems([]fs.FS{os.DirFS(compileCddlDir)})
				for _, f := range files {
					logger.Infof("compiled %s", f)
				}
				if err != nil {
					failureln("%s is not conformant. %s", compileCddlDir, err.Error())
					return errors.New("compilation failed")
				}
				if len(files) == 0 {
					return errors.New("no *.cddl files found in " + compileCddlDir)
				}
				successln("%d file(s) conformant", len(files))
				return nil
			}
			if compileCddlFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --cddl or --directory")
			}
			buf, err := os.ReadFile(compileCddlFile)
			if err != nil {
				return err
			}
			if err := cddl.CompileCDDLFromString(string(buf)); err != nil {
				failureln("%s is not conformant. %s", compileCddlFile, err.Error())
				return errors.New("compilation failed")
			}
			successln("%s is conformant", compileCddlFile)
			return nil
		},
	}
)

func init() {
	compileCddlCmd.Flags().StringVarP(&compileCddlFile, "cddl", "c", "", "CDDL input file")
	compileCddlCmd.Flags().StringVarP(&compileCddlDir, "directory", "d", "", "directory tree to scan for *.cddl files")
	rootCmd.AddCommand(compileCddlCmd)
}
