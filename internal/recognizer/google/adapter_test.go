package google

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/binh123-ol/english-learning/internal/recognizer"
)

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want recognizer.ErrorKind
	}{
		{"permission denied", status.Error(codes.PermissionDenied, "no mic"), recognizer.KindPermissionDenied},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad creds"), recognizer.KindPermissionDenied},
		{"deadline", status.Error(codes.DeadlineExceeded, "silence"), recognizer.KindNoSpeech},
		{"unavailable", status.Error(codes.Unavailable, "down"), recognizer.KindOther},
		{"plain error", errors.New("boom"), recognizer.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recognizer.KindOf(classifyErr(tt.err))
			if got != tt.want {
				t.Errorf("classifyErr(%v) kind = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyErr_WrapsOriginal(t *testing.T) {
	orig := status.Error(codes.PermissionDenied, "no mic")
	err := classifyErr(orig)

	var ce *recognizer.CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CaptureError, got %T", err)
	}
	if !errors.Is(err, ce.Err) {
		t.Error("classified error must wrap the original")
	}
}
