package handlers

// Ad hoc error codes carried by apierr.BadRequest. They live outside the
// registry because their message is chosen at the call site.
const (
	CodeMalformedJSON = 4000
)

// Messages used with the ad hoc codes above.
const (
	msgMalformedJSON = "request body must be valid JSON"
)
