// Package problem renders apierr values into the JSON error payload returned
// to clients.
package problem

import (
	"net/http"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Title    string              `json:"title"`
	Status   int                 `json:"status"`
	Instance *string             `json:"instance"`
	Details  []ValidationProblem `json:"details"`
}

// ValidationProblem is one reported violation.
type ValidationProblem struct {
	Field     *string `json:"field"`
	Message   string  `json:"message"`
	ErrorCode int     `json:"error_code"`
}

const (
	titleNotFound   = "Not Found"
	titleBadRequest = "Bad request"
	titleInternal   = "Internal server error"
)

// ToResponse maps err to its payload and HTTP status. A nil err means no
// handler matched the request and yields 404. Errors outside the taxonomy are
// treated as internal errors.
//
// For MultipleErrors the status is the one of the last code that resolves in
// reg; codes that do not resolve are left out of Details.
//
// ToResponse has no side effects: the same input always produces the same
// output.
func ToResponse(err error, reg *errcodes.Registry) (ErrorResponse, int) {
	resp := build(err, reg)
	if http.StatusText(resp.Status) == "" {
		resp.Status = http.StatusInternalServerError
	}
	return resp, resp.Status
}

func build(err error, reg *errcodes.Registry) ErrorResponse {
	if err == nil {
		return ErrorResponse{Title: titleNotFound, Status: http.StatusNotFound}
	}
	e, ok := apierr.As(err)
	if !ok {
		return internal()
	}

	switch v := e.(type) {
	case apierr.NotFound:
		return ErrorResponse{Title: titleNotFound, Status: http.StatusNotFound}

	case apierr.BadRequest:
		return ErrorResponse{
			Title:   titleBadRequest,
			Status:  http.StatusBadRequest,
			Details: []ValidationProblem{{Message: v.Message, ErrorCode: v.Code}},
		}

	case apierr.CodeError:
		entry, found := reg.Find(v.Code)
		if !found {
			return internal()
		}
		return ErrorResponse{
			Title:   entry.Message,
			Status:  entry.Status,
			Details: []ValidationProblem{{Message: entry.Message, ErrorCode: entry.Code}},
		}

	case apierr.MultipleErrors:
		resp := ErrorResponse{
			Title:    v.Description(),
			Instance: v.Instance,
			Details:  make([]ValidationProblem, 0, len(v.Codes)),
		}
		for _, code := range v.Codes {
			entry, found := reg.Find(code)
			if !found {
				continue
			}
			resp.Status = entry.Status
			resp.Details = append(resp.Details, ValidationProblem{
				Field:     v.Field,
				Message:   entry.Message,
				ErrorCode: entry.Code,
			})
		}
		return resp

	default:
		return internal()
	}
}

func internal() ErrorResponse {
	return ErrorResponse{
		Title:   titleInternal,
		Status:  http.StatusInternalServerError,
		Details: []ValidationProblem{{Message: titleInternal, ErrorCode: 0}},
	}
}
