package types

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

var (
	_ error = &NodeError{}
	_ error = &ProviderError{}
	_ error = &ConfigurationError{}
	_ error = &FatalError{}
	_ error = &CyclicGraphError{}
)

func NewNodeError(otherErr error) error {
	return &NodeError{baseError: newBaseErr(otherErr)}
}

func NewNodeErrorf(format string, args ...interface{}) error {
	return NewNodeError(errors.Errorf(format, args...))
}

func NewProviderError(otherErr error) error {
	return &ProviderError{baseError: newBaseErr(otherErr)}
}

func NewProviderErrorf(format string, args ...interface{}) error {
	return NewProviderError(errors.Errorf(format, args...))
}

func NewConfigurationError(otherErr error) error {
	return &ConfigurationError{baseError: newBaseErr(otherErr)}
}

func NewConfigurationErrorf(format string, args ...interface{}) error {
	return NewConfigurationError(errors.Errorf(format, args...))
}

func NewFatalError(otherErr error) error {
	return &FatalError{baseError: newBaseErr(otherErr)}
}

func NewFatalErrorf(format string, args ...interface{}) error {
	return NewFatalError(errors.Errorf(format, args...))
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

// NodeError is a recoverable failure scoped to one node, such as a missing
// required data field.
type NodeError struct {
	*baseError
}

// ProviderError is a failure of an external capability (scrape, extract,
// crawl or LLM call). It is scoped to the calling node.
type ProviderError struct {
	*baseError
}

// ConfigurationError means a capability a node needs is not available. It
// aborts the run.
type ConfigurationError struct {
	*baseError
}

type FatalError struct {
	*baseError
}

// CyclicGraphError lists the nodes that never reached in-degree zero.
type CyclicGraphError struct {
	Nodes []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("graph contains a cycle through: %s", strings.Join(e.Nodes, ", "))
}

// IsRecoverable reports whether err should be reported on the node that
// produced it while the run goes on.
func IsRecoverable(err error) bool {
	var nodeErr *NodeError
	var providerErr *ProviderError
	return errors.As(err, &nodeErr) || errors.As(err, &providerErr)
}
