package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{BadRequest, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Config, http.StatusServiceUnavailable},
		{Upstream, http.StatusBadGateway},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestIs_MatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("reconcile: %w", New(BadRequest, "startDate must not be after endDate"))
	if !errors.Is(err, ErrInvalidRange) {
		t.Error("expected wrapped bad request to match ErrInvalidRange")
	}
	if errors.Is(err, ErrUpstream) {
		t.Error("bad request must not match ErrUpstream")
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Upstream, "fetch timeframe", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "fetch timeframe: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
	ae, ok := As(fmt.Errorf("outer: %w", err))
	if !ok || ae.Code() != Upstream {
		t.Fatalf("As failed: %v %v", ae, ok)
	}
}
