package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

func TestErrorString(t *testing.T) {
	err := NewError(ErrUnresolvedReference, "node 7 missing").WithElement(osm.WayRef(12))
	got := err.Error()
	if !strings.HasPrefix(got, "UNRESOLVED_REFERENCE way/12: node 7 missing") {
		t.Errorf("unexpected error string %q", got)
	}

	err.WithGuidance("Fetch the full way")
	if !strings.HasSuffix(err.Error(), ". Fetch the full way") {
		t.Errorf("guidance missing from %q", err.Error())
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	base := NewError(ErrIncompleteRing, "outer ring does not close")
	wrapped := fmt.Errorf("extracting footprint: %w", base)

	if !HasCode(wrapped, ErrIncompleteRing) {
		t.Error("expected wrapped error to carry INCOMPLETE_RING")
	}
	if HasCode(wrapped, ErrNotFound) {
		t.Error("unexpected NOT_FOUND")
	}
	if HasCode(errors.New("plain"), ErrInternalError) {
		t.Error("plain error should carry no code")
	}

	// nested codes are all visible
	outer := NewError(ErrUnmeshableFootprint, "part failed").WithCause(base)
	if !HasCode(outer, ErrIncompleteRing) || !HasCode(outer, ErrUnmeshableFootprint) {
		t.Error("expected both codes in chain")
	}
	if CodeOf(outer) != ErrUnmeshableFootprint {
		t.Errorf("CodeOf = %s", CodeOf(outer))
	}
}

func TestAsError(t *testing.T) {
	if e := AsError(errors.New("boom")); e.Code != ErrInternalError {
		t.Errorf("expected INTERNAL_ERROR, got %s", e.Code)
	}
	orig := NewError(ErrNotFound, "gone")
	if AsError(fmt.Errorf("x: %w", orig)) != orig {
		t.Error("AsError should return the wrapped *Error")
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusGone, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimit},
		{509, ErrRateLimit},
		{http.StatusGatewayTimeout, ErrServiceTimeout},
		{http.StatusBadRequest, ErrInvalidInput},
		{http.StatusInternalServerError, ErrInternalError},
		{http.StatusBadGateway, ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ServiceError("osmapi", tt.status, "failed")
			if err.Code != tt.want {
				t.Errorf("status %d: got %s, want %s", tt.status, err.Code, tt.want)
			}
			if err.Guidance == "" {
				t.Error("expected guidance")
			}
		})
	}
}

func TestToMCPResult(t *testing.T) {
	res := NewError(ErrNotFound, "missing").WithElement(osm.RelationRef(42)).ToMCPResult()
	if !res.IsError {
		t.Fatal("expected error result")
	}
}
