package main

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// responseOutput is the JSON rendering of a response. Body is embedded as
// JSON when the server returned JSON, as a string otherwise.
type responseOutput struct {
	Status     int         `json:"status"`
	StatusText string      `json:"status_text"`
	Body       interface{} `json:"body,omitempty"`
}

// StatusError is returned for non-2xx responses so the process exits non-zero.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// printResponse writes the status line and body of resp and closes it.
func printResponse(w io.Writer, format string, resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := writeResponse(w, format, resp.StatusCode, body); err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func writeResponse(w io.Writer, format string, status int, body []byte) error {
	if format == outputJSON {
		out := responseOutput{Status: status, StatusText: http.StatusText(status)}
		if len(body) > 0 {
			if json.Valid(body) {
				out.Body = json.RawMessage(body)
			} else {
				out.Body = string(body)
			}
		}
		return json.NewEncoder(w).Encode(out)
	}

	if _, err := fmt.Fprintf(w, "%d %s\n", status, http.StatusText(status)); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
