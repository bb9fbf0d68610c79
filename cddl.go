// Package cddl compiles CDDL (RFC 8610) schemas and validates JSON and
// CBOR instances against them.
package cddl

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/datapact/cddl/cddlparser"
	"github.com/datapact/cddl/validator"
)

// Compile parses and resolves a CDDL schema, returning the rule table
// shared by all validations of that schema.
func Compile(text string) (*cddlparser.RuleTable, error) {
	doc := cddlparser.ParseString("", text)
	if doc.HasErrors() {
		return nil, SchemaErrors{Errors: doc.Errors}
	}
	table, errs := cddlparser.BuildRuleTable(doc)
	if len(errs) > 0 {
		return nil, SchemaErrors{Errors: errs}
	}
	return table, nil
}

// CompileCDDLFromString checks a schema for syntactic and resolution
// errors.
func CompileCDDLFromString(text string) error {
	_, err := Compile(text)
	return err
}

// ParseToAST exposes the parsed AST for tooling; resolution is not run.
func ParseToAST(text string) (*cddlparser.Document, error) {
	doc := cddlparser.ParseString("", text)
	if doc.HasErrors() {
		return nil, SchemaErrors{Errors: doc.Errors}
	}
	return doc, nil
}

// ValidateJSONFromString validates a JSON document against the schema's
// first rule.
func ValidateJSONFromString(cddlText, jsonText string) error {
	table, err := Compile(cddlText)
	if err != nil {
		return err
	}
	value, err := validator.DecodeJSON(jsonText)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if errs := validator.NewJSONValidator(table).Validate("", value); len(errs) > 0 {
		return ValidationErrors{Errors: errs}
	}
	return nil
}

// ValidateCBORFromSlice validates a CBOR item against the schema's first
// rule.
func ValidateCBORFromSlice(cddlText string, data []byte) error {
	return ValidateCBORNamed(cddlText, "", data)
}

// ValidateCBORNamed validates a CBOR item starting from the named rule,
// or the first rule when typename is empty.
func ValidateCBORNamed(cddlText, typename string, data []byte) error {
	table, err := Compile(cddlText)
	if err != nil {
		return err
	}
	value, err := validator.DecodeCBOR(data)
	if err != nil {
		// duplicate map keys and malformed items both surface here
		return ValidationErrors{Errors: validator.Errors{{
			Path: "root", Reason: "CBOR does not decode: " + err.Error(),
		}}}
	}
	if errs := validator.NewCBORValidator(table).Validate(typename, value); len(errs) > 0 {
		return ValidationErrors{Errors: errs}
	}
	return nil
}

// CompileFilesystems walks the given filesystems and compiles every
// *.cddl file found, returning the compiled files. Two files with
// identical contents are rejected, which protects against the same tree
// being passed twice.
func CompileFilesystems(fslst []fs.FS) (filenames []string, err error) {
	hashes := make(map[[32]byte]string)

	for fidx, fsys := range fslst {
		// WalkDir is in lexical order according to docs, so output should be stable
		walkErr := fs.WalkDir(fsys, ".",
			func(path string, d fs.DirEntry, werr error) error {
				if werr != nil {
					return werr
				}
				// Skip over any hidden directories; in particular .git
				if strings.HasPrefix(path, ".") || strings.Contains(path, "/.") {
					return nil
				}
				if filepath.Ext(path) != ".cddl" {
					return nil
				}

				buf, rerr := fs.ReadFile(fsys, path)
				if rerr != nil {
					return rerr
				}

				pathDesc := fmt.Sprintf("fs[%d]:%s", fidx, path)
				hash := sha256.Sum256(buf)
				if existing, exists := hashes[hash]; exists {
					return errors.New(fmt.Sprintf("file %s has exact same contents as %s (possibly in different filesystems)",
						pathDesc, existing))
				}
				hashes[hash] = pathDesc

				doc := cddlparser.ParseString(cddlparser.FileRef(path), string(buf))
				if doc.HasErrors() {
					return SchemaErrors{Errors: doc.Errors}
				}
				if _, cerrs := cddlparser.BuildRuleTable(doc); len(cerrs) > 0 {
					return SchemaErrors{Errors: cerrs}
				}
				filenames = append(filenames, pathDesc)
				return nil
			})
		if walkErr != nil {
			return filenames, walkErr
		}
	}
	return filenames, nil
}
