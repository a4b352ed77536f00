package llm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures so the transport can pick a status code or event.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindEmbedding           Kind = "embedding"
	KindSearch              Kind = "search"
	KindIndex               Kind = "index"
	KindClassificationParse Kind = "classification_parse"
	KindGeneration          Kind = "generation"
	KindSessionStore        Kind = "session_store"
)

// Error is a failure raised at a service boundary.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name, attaching a stack trace if err
// does not carry one yet.
func E(kind Kind, op string, err error) error {
	if err != nil {
		if _, ok := err.(interface{ StackTrace() errors.StackTrace }); !ok {
			err = errors.WithStack(err)
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
