package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"go.uber.org/zap"
)

func TestInitiateCapture(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantRef   string
		wantErrIs error
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "token test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				var req captureRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Amount != "240000" || req.Currency != "USD" {
					t.Errorf("unexpected request: %+v", req)
				}
				_ = json.NewEncoder(w).Encode(captureResponse{Reference: "cap_42", Status: "processing"})
			},
			wantRef: "cap_42",
		},
		{
			name: "server error is retryable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErrIs: apperrors.ErrGatewayUnavailable,
		},
		{
			name: "client error is terminal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			},
			wantErrIs: apperrors.ErrGatewayRejected,
		},
		{
			name: "empty reference is treated as unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(captureResponse{})
			},
			wantErrIs: apperrors.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewGatewayClient(srv.URL, "test-key", time.Second, zap.NewNop())
			ref, err := client.InitiateCapture(context.Background(), uuid.New(), "240000", "USD")

			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("error = %v, want %v", err, tt.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitiateCapture: %v", err)
			}
			if ref != tt.wantRef {
				t.Fatalf("reference = %q, want %q", ref, tt.wantRef)
			}
		})
	}
}

func TestInitiateCaptureConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // nothing listening

	client := NewGatewayClient(srv.URL, "test-key", time.Second, zap.NewNop())
	_, err := client.InitiateCapture(context.Background(), uuid.New(), "100", "USD")
	if !errors.Is(err, apperrors.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}
}

func TestGetCaptureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/captures/cap_42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(captureResponse{Reference: "cap_42", Status: "completed"})
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, "test-key", time.Second, zap.NewNop())

	status, err := client.GetCaptureStatus(context.Background(), "cap_42")
	if err != nil {
		t.Fatalf("GetCaptureStatus: %v", err)
	}
	if status != "completed" {
		t.Fatalf("status = %q, want completed", status)
	}

	_, err = client.GetCaptureStatus(context.Background(), "cap_missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
