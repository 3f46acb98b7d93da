// Package validation implements per-field rule chains over optional values.
//
// A chain is built for one field of one request, evaluated once with
// Validate, and discarded:
//
//	_, err := validation.String(req.Content,
//		validation.Field("content"),
//		validation.Instance(c.Request.URL.Path),
//	).
//		NotNull(errcodes.NotNull).
//		NotEmpty(errcodes.NotEmpty).
//		MaxLength(32, errcodes.MaxSize).
//		Validate()
//
// Every check runs, in declaration order, and every failure is reported: the
// error returned by Validate is an apierr.MultipleErrors listing the code of
// each failed check. A nil value means "field not provided"; only NotNull
// fires on it, every other check passes vacuously.
//
// Each value kind has its own builder exposing only the checks that make
// sense for it, so asking for MaxLength on a number does not compile.
package validation

import (
	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// Option configures the context a chain reports on failure.
type Option func(*meta)

type meta struct {
	field    *string
	instance *string
}

// Field names the validated field in every reported problem.
func Field(name string) Option {
	return func(m *meta) { m.field = &name }
}

// Instance records the request path the failure belongs to.
func Instance(path string) Option {
	return func(m *meta) { m.instance = &path }
}

type check[T any] struct {
	code errcodes.ErrorCode
	// onAbsent is true only for NotNull.
	onAbsent bool
	fails    func(T) bool
}

// chain is the kind-independent core embedded by every builder.
type chain[T any] struct {
	value  *T
	meta   meta
	checks []check[T]
}

func newChain[T any](v *T, opts []Option) chain[T] {
	c := chain[T]{value: v}
	for _, o := range opts {
		if o != nil {
			o(&c.meta)
		}
	}
	return c
}

func (c *chain[T]) add(code errcodes.ErrorCode, fails func(T) bool) {
	c.checks = append(c.checks, check[T]{code: code, fails: fails})
}

func (c *chain[T]) addNotNull(code errcodes.ErrorCode) {
	c.checks = append(c.checks, check[T]{code: code, onAbsent: true})
}

func (c *chain[T]) validate() (*T, error) {
	var failed []errcodes.ErrorCode
	for _, ck := range c.checks {
		if !ck.failsOn(c.value) {
			continue
		}
		code := ck.code
		if !errcodes.Default().Known(code) {
			code = errcodes.Unspecified
		}
		failed = append(failed, code)
	}
	if len(failed) == 0 {
		return c.value, nil
	}
	return nil, apierr.MultipleErrors{
		Codes:    failed,
		Field:    c.meta.field,
		Instance: c.meta.instance,
	}
}

func (ck check[T]) failsOn(v *T) bool {
	if v == nil {
		return ck.onAbsent
	}
	if ck.onAbsent || ck.fails == nil {
		return false
	}
	return ck.fails(*v)
}

// FirstError returns the first non-nil error, or nil. Handlers validating
// several fields use it to report the first failing field.
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
