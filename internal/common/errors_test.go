package common

import (
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantGRPC codes.Code
		wantHTTP int
		client   bool
	}{
		{"unsupported", NewAppError(CodeUnsupportedFormat, "bad ext", nil), codes.InvalidArgument, http.StatusBadRequest, true},
		{"too large", NewAppError(CodeFileTooLarge, "big", nil), codes.ResourceExhausted, http.StatusRequestEntityTooLarge, true},
		{"wrapped not found", fmt.Errorf("load: %w", NewAppError(CodeJobNotFound, "no job", ErrNotFound)), codes.NotFound, http.StatusNotFound, true},
		{"extraction", NewAppError(CodeExtractionFailed, "gave up", nil), codes.Unavailable, http.StatusBadGateway, false},
		{"sentinel", fmt.Errorf("x: %w", ErrInvalidInput), codes.InvalidArgument, http.StatusBadRequest, true},
		{"plain", fmt.Errorf("boom"), codes.Internal, http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GRPCCode(tt.err); got != tt.wantGRPC {
				t.Errorf("GRPCCode = %s, want %s", got, tt.wantGRPC)
			}
			if got := HTTPStatus(tt.err); got != tt.wantHTTP {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.wantHTTP)
			}
			if got := IsClientError(tt.err); got != tt.client {
				t.Errorf("IsClientError = %v, want %v", got, tt.client)
			}
		})
	}
}

func TestToStatusKeepsExistingStatus(t *testing.T) {
	orig := status.Error(codes.Aborted, "aborted")
	if got := ToStatus(orig); got != orig {
		t.Fatalf("ToStatus rewrote an existing status error")
	}
	st, _ := status.FromError(ToStatus(NewAppError(CodeNoItemsFound, "none", nil)))
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("code = %s", st.Code())
	}
}

func TestAppErrorDetails(t *testing.T) {
	err := NewAppError(CodeExtractionFailed, "x", nil).WithDetail("preview", "abc").WithDetail("attempts", 3)
	if err.Details["preview"] != "abc" || err.Details["attempts"] != 3 {
		t.Fatalf("details = %v", err.Details)
	}
}
