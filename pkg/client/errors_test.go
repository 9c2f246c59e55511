package client

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestConnectionError_Error(t *testing.T) {
	err := &ConnectionError{
		Method: "GET",
		URL:    "http://localhost:11222/rest/v2/caches",
		Err:    io.ErrUnexpectedEOF,
	}

	expected := "error while sending the request to Infinispan (GET http://localhost:11222/rest/v2/caches): unexpected EOF"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConnectionError_Is(t *testing.T) {
	var err error = &ConnectionError{Method: "POST", URL: "x", Err: context.DeadlineExceeded}

	if !errors.Is(err, ErrConnection) {
		t.Error("errors.Is(err, ErrConnection) = false, want true")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false, want true")
	}
	if errors.Is(err, io.EOF) {
		t.Error("errors.Is(err, io.EOF) = true, want false")
	}
}

func TestConnectionError_As(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &ConnectionError{Method: "HEAD", URL: "u", Err: io.EOF})

	var connErr *ConnectionError
	if !errors.As(wrapped, &connErr) {
		t.Fatal("errors.As failed to find *ConnectionError")
	}
	if connErr.Method != "HEAD" {
		t.Errorf("Method = %q, want HEAD", connErr.Method)
	}
	if connErr.Unwrap() != io.EOF {
		t.Errorf("Unwrap() = %v, want io.EOF", connErr.Unwrap())
	}
}
