package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/datapact/cddl"
)

// CheckManifest is the YAML format consumed by `cddl check`: a list of
// schema/instance pairs with their expected outcome.
type CheckManifest struct {
	Cases []CheckCase `yaml:"cases"`
}

type CheckCase struct {
	Name     string `yaml:"name"`
	Cddl     string `yaml:"cddl"`
	JSON     string `yaml:"json"`
	Cbor     string `yaml:"cbor"`
	Typename string `yaml:"typename"`
	Expect   string `yaml:"expect"` // "ok" or "fail"
}

var (
	checkManifestFile string

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run a YAML manifest of validation cases and report mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkManifestFile == "" {
				_ = cmd.Help()
				return errors.New("need to specify --manifest")
			}
			buf, err := os.ReadFile(checkManifestFile)
			if err != nil {
				return err
			}
			var manifest CheckManifest
			if err := yaml.Unmarshal(buf, &manifest); err != nil {
				return fmt.Errorf("malformed manifest: %w", err)
			}
			if len(manifest.Cases) == 0 {
				return errors.New("manifest has no cases")
			}

			logger := logrus.StandardLogger()
			base := filepath.Dir(checkManifestFile)
			failed := 0
			for i, c := range manifest.Cases {
				name := c.Name
				if name == "" {
					name = fmt.Sprintf("case %d", i+1)
				}
				verr, err := runCheckCase(base, c)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				switch {
				case c.Expect == "fail" && verr == nil:
					logger.Errorf("%s: expected failure, validated successfully", name)
					failed++
				case c.Expect != "fail" && verr != nil:
					logger.Errorf("%s: %s", name, verr.Error())
					failed++
				default:
					logger.Infof("%s: ok", name)
				}
			}
			if failed > 0 {
				failureln("%d of %d case(s) mismatched", failed, len(manifest.Cases))
				return errors.New("check failed")
			}
			successln("%d case(s) passed", len(manifest.Cases))
			return nil
		},
	}
)

// runCheckCase returns the validation outcome (verr) separately from
// manifest/file problems (err), so expected failures are not mistaken for
// broken manifests.
func runCheckCase(base string, c CheckCase) (verr error, err error) {
	if c.Cddl == "" {
		return nil, errors.New("case is missing the cddl field")
	}
	schema, err := os.ReadFile(filepath.Join(base, c.Cddl))
	if err != nil {
		return nil, err
	}
	switch {
	case c.JSON != "":
		instance, err := os.ReadFile(filepath.Join(base, c.JSON))
		if err != nil {
			return nil, err
		}
		return cddl.ValidateJSONFromString(string(schema), string(instance)), nil
	case c.Cbor != "":
		instance, err := os.ReadFile(filepath.Join(base, c.Cbor))
		if err != nil {
			return nil, err
		}
		return cddl.ValidateCBORNamed(string(schema), c.Typename, instance), nil
	}
	return cddl.CompileCDDLFromString(string(schema)), nil
}

func init() {
	checkCmd.Flags().StringVarP(&checkManifestFile, "manifest", "m", "", "YAML manifest of validation cases")
	rootCmd.AddCommand(checkCmd)
}
