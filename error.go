package cddl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/datapact/cddl/cddlparser"
	"github.com/datapact/cddl/validator"
)

// SchemaErrors reports lexical, syntactic and resolution problems found
// while compiling a schema.
type SchemaErrors struct {
	Errors []cddlparser.Error
}

func (e SchemaErrors) Error() string {
	var msg strings.Builder
	msg.WriteString("cddl schema error:\n\n")
	for _, err := range e.Errors {
		msg.WriteString(fmt.Sprintf("%s:%d:%d: %s\n", err.Pos.File, err.Pos.Line, err.Pos.Col, err.Message))
	}
	return msg.String()
}

// ValidationErrors reports instance non-conformance; the wrapped list is
// never empty.
type ValidationErrors struct {
	Errors validator.Errors
}

func (e ValidationErrors) Error() string {
	var result *multierror.Error
	for _, err := range e.Errors {
		result = multierror.Append(result, err)
	}
	result.ErrorFormat = func(errs []error) string {
		var msgs []string
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Sprintf("validation failed:\n\t%s", strings.Join(msgs, "\n\t"))
	}
	return result.Error()
}
