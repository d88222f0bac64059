package archive

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapWriteError_NilPassthrough(t *testing.T) {
	if err := WrapWriteError(nil, "crier/Watchdog"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapReadError(nil, "crier/snapshots"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapInitError(nil, "crier"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"enoent", errors.New("open /data/crier: no such file or directory"), ErrNotFound},
		{"s3 missing key", errors.New("NoSuchKey: the specified key does not exist"), ErrNotFound},
		{"missing creds", errors.New("NoCredentialProviders: no valid providers in chain"), ErrAuth},
		{"access denied", errors.New("AccessDenied: access denied"), ErrAuth},
		{"slow down", errors.New("SlowDown: please reduce request rate"), ErrThrottled},
		{"deadline", errors.New("context deadline exceeded"), ErrTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), ErrNetwork},
		{"unclassified", errors.New("something odd happened"), ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapWriteError(tt.err, "crier/Watchdog/2026-08-25")
			if !errors.Is(wrapped, tt.want) {
				t.Errorf("classified as %v, want %v", wrapped, tt.want)
			}
		})
	}
}

func TestStorageError_PreservesChain(t *testing.T) {
	underlying := fmt.Errorf("dial tcp: connection refused")
	wrapped := WrapReadError(underlying, "crier/snapshots")

	var storageErr *StorageError
	if !errors.As(wrapped, &storageErr) {
		t.Fatal("expected *StorageError in chain")
	}
	if storageErr.Op != "read" {
		t.Errorf("Op = %q, want %q", storageErr.Op, "read")
	}
	if !errors.Is(wrapped, underlying) {
		t.Error("underlying error lost from chain")
	}
	if !errors.Is(wrapped, ErrNetwork) {
		t.Error("sentinel classification lost")
	}
}

func TestStorageError_Message(t *testing.T) {
	err := WrapWriteError(errors.New("boom"), "crier/Watchdog")
	msg := err.Error()
	for _, want := range []string{"write", "crier/Watchdog", "boom"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "operation stalled" }
func (timeoutErr) Timeout() bool { return true }

func TestClassify_TypedTimeout(t *testing.T) {
	wrapped := WrapReadError(timeoutErr{}, "crier/snapshots")
	if !errors.Is(wrapped, ErrTimeout) {
		t.Errorf("typed timeout classified as %v", wrapped)
	}
}
