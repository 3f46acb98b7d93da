// Package errcodes defines the closed set of symbolic error codes used for
// request validation and authentication failures, together with the registry
// that resolves each code to its numeric code, HTTP status, and canonical
// message.
//
// The registry is built exactly once, when the package is initialized, and is
// never mutated afterwards. A *Registry may therefore be shared freely between
// goroutines; lookups take no lock.
//
// Numbering conventions:
//   - 1000–1999: field validation failures (400)
//   - 2000–2999: authentication failures (401, or 400 for malformed grants)
//   - 4xx0:      transport-level conditions, numbered after their HTTP status
package errcodes

import (
	"net/http"
	"sort"
	"strconv"
)

// ErrorCode identifies one kind of failure. The zero value is Unspecified.
type ErrorCode int

const (
	Unspecified ErrorCode = iota
	NotNull
	NotEmpty
	MaxSize
	OutOfRange
	NotInteger
	NotDecimal
	NotNumber
	MissingDecimals
	NotTrue
	InvalidIdempotencyKey

	MissingToken
	InvalidToken
	InvalidCredentials
	UnsupportedGrant

	MethodNotAllowed
	RateLimited
)

var names = map[ErrorCode]string{
	Unspecified:           "Unspecified",
	NotNull:               "NotNull",
	NotEmpty:              "NotEmpty",
	MaxSize:               "MaxSize",
	OutOfRange:            "OutOfRange",
	NotInteger:            "NotInteger",
	NotDecimal:            "NotDecimal",
	NotNumber:             "NotNumber",
	MissingDecimals:       "MissingDecimals",
	NotTrue:               "NotTrue",
	InvalidIdempotencyKey: "InvalidIdempotencyKey",
	MissingToken:          "MissingToken",
	InvalidToken:          "InvalidToken",
	InvalidCredentials:    "InvalidCredentials",
	UnsupportedGrant:      "UnsupportedGrant",
	MethodNotAllowed:      "MethodNotAllowed",
	RateLimited:           "RateLimited",
}

// String returns the symbolic name of the code, or "ErrorCode(n)" for values
// outside the enumeration.
func (c ErrorCode) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
}

// Entry is the resolved form of an ErrorCode.
type Entry struct {
	Code    int    // stable numeric code reported to clients
	Status  int    // HTTP status
	Message string // canonical, client-safe message
}

// Fallback is returned by Lookup for codes that have no entry.
var Fallback = Entry{Code: 0, Status: http.StatusInternalServerError, Message: "Unspecified internal error"}

// seed is the built-in table. Every ErrorCode constant must appear here.
var seed = map[ErrorCode]Entry{
	Unspecified:           {Code: 1000, Status: http.StatusBadRequest, Message: "Content is invalid"},
	NotNull:               {Code: 1001, Status: http.StatusBadRequest, Message: "Content must not be null"},
	NotEmpty:              {Code: 1002, Status: http.StatusBadRequest, Message: "Content must not be empty"},
	MaxSize:               {Code: 1003, Status: http.StatusBadRequest, Message: "Content must be maximum size 32"},
	OutOfRange:            {Code: 1004, Status: http.StatusBadRequest, Message: "Value is out of range"},
	NotInteger:            {Code: 1005, Status: http.StatusBadRequest, Message: "Value must be an integer"},
	NotDecimal:            {Code: 1006, Status: http.StatusBadRequest, Message: "Value must be a decimal number"},
	NotNumber:             {Code: 1007, Status: http.StatusBadRequest, Message: "Value must be a number"},
	MissingDecimals:       {Code: 1008, Status: http.StatusBadRequest, Message: "Value must have decimals"},
	NotTrue:               {Code: 1009, Status: http.StatusBadRequest, Message: "Value must be true"},
	InvalidIdempotencyKey: {Code: 1010, Status: http.StatusBadRequest, Message: "Invalid Idempotency-Key"},

	MissingToken:       {Code: 2001, Status: http.StatusUnauthorized, Message: "Missing bearer token"},
	InvalidToken:       {Code: 2002, Status: http.StatusUnauthorized, Message: "Invalid or expired token"},
	InvalidCredentials: {Code: 2003, Status: http.StatusUnauthorized, Message: "Invalid credentials"},
	UnsupportedGrant:   {Code: 2004, Status: http.StatusBadRequest, Message: "Unsupported grant type"},

	MethodNotAllowed: {Code: 4050, Status: http.StatusMethodNotAllowed, Message: "Method not allowed"},
	RateLimited:      {Code: 4290, Status: http.StatusTooManyRequests, Message: "Rate limit exceeded"},
}

// Registry maps ErrorCode values to entries. It is read-only once built.
type Registry struct {
	entries map[ErrorCode]Entry
}

var defaultRegistry = New(seed)

// Default returns the process-wide registry built from the built-in table.
func Default() *Registry { return defaultRegistry }

// New builds a registry from entries. The map is copied, so later changes to
// the argument are not observed.
func New(entries map[ErrorCode]Entry) *Registry {
	m := make(map[ErrorCode]Entry, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Registry{entries: m}
}

// Lookup resolves code. It never fails: codes without an entry resolve to
// Fallback. A nil registry behaves as an empty one.
func (r *Registry) Lookup(code ErrorCode) Entry {
	if e, ok := r.Find(code); ok {
		return e
	}
	return Fallback
}

// Find resolves code and reports whether an entry exists.
func (r *Registry) Find(code ErrorCode) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[code]
	return e, ok
}

// Known reports whether code has an entry.
func (r *Registry) Known(code ErrorCode) bool {
	_, ok := r.Find(code)
	return ok
}

// Codes returns every registered code in ascending order.
func (r *Registry) Codes() []ErrorCode {
	if r == nil {
		return nil
	}
	out := make([]ErrorCode, 0, len(r.entries))
	for c := range r.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
