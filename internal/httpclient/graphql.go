package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GraphQLRequest is the standard GraphQL POST body.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is one entry of a response's errors array.
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors is returned when the server answered with an errors array.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, len(e))
	for i, m := range e {
		msgs[i] = m.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// StatusError is returned for non-2xx GraphQL responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql: status %d: %s", e.StatusCode, e.Body)
}

// ErrEmptyData is returned when a response carries neither data nor errors.
var ErrEmptyData = errors.New("graphql: empty data")

const maxErrorBody = 200

// Query posts req to url and decodes the data member into out.
func Query(ctx context.Context, c Client, url string, req GraphQLRequest, out any) error {
	var resp graphQLResponse
	_, err := c.NewRequest(
		WithOperation(req.OperationName),
		WithResponseErrorHandler(func(status int, body []byte) error {
			if status < 200 || status >= 300 {
				return &StatusError{StatusCode: status, Body: truncate(body, maxErrorBody)}
			}
			return nil
		}),
	).
		SetBody(req).
		SetResult(&resp).
		Post(ctx, url)
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		return GraphQLErrors(resp.Errors)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return ErrEmptyData
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
