package core

import (
	"context"
	"errors"
	"testing"
)

func TestErrorIsMatchesByKindAlone(t *testing.T) {
	err := NewError(KindChecksumChanged, "https://example.com").WithPackage("foo.bar").WithVersion("1.0.0")
	if !errors.Is(err, ErrKind(KindChecksumChanged)) {
		t.Error("expected errors.Is to match on Kind regardless of context fields")
	}
	if errors.Is(err, ErrKind(KindInvalidChecksum)) {
		t.Error("expected errors.Is to reject a different Kind")
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := NewError(KindSourceArchiveNotSigned, "")
	wrapped := errors.Join(errors.New("context"), inner)
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindSourceArchiveNotSigned {
		t.Errorf("KindOf(wrapped) = %v, %v, want %v, true", kind, ok, KindSourceArchiveNotSigned)
	}
}

func TestKindOfNonMatchingError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("expected KindOf to report false for a non-*Error")
	}
}

func TestWrapRetrievalPassesThroughCancellation(t *testing.T) {
	if err := WrapRetrieval(KindFailedRetrievingReleases, "", context.Canceled); err != context.Canceled {
		t.Errorf("WrapRetrieval(context.Canceled) = %v, want context.Canceled unwrapped", err)
	}
}

func TestWrapRetrievalWrapsOtherErrors(t *testing.T) {
	cause := errors.New("boom")
	err := WrapRetrieval(KindFailedRetrievingReleases, "https://example.com", cause)
	kind, ok := KindOf(err)
	if !ok || kind != KindFailedRetrievingReleases {
		t.Fatalf("WrapRetrieval kind = %v, %v, want %v, true", kind, ok, KindFailedRetrievingReleases)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the wrapped error to unwrap to the original cause")
	}
}

func TestWrapRetrievalNilIsNil(t *testing.T) {
	if err := WrapRetrieval(KindFailedRetrievingReleases, "", nil); err != nil {
		t.Errorf("WrapRetrieval(nil) = %v, want nil", err)
	}
}

func TestWrapRetrievalWrapsDeadlineExceeded(t *testing.T) {
	err := WrapRetrieval(KindFailedRetrievingReleases, "https://example.com", context.DeadlineExceeded)
	kind, ok := KindOf(err)
	if !ok || kind != KindFailedRetrievingReleases {
		t.Fatalf("WrapRetrieval(context.DeadlineExceeded) kind = %v, %v, want %v, true", kind, ok, KindFailedRetrievingReleases)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the wrapped error to unwrap to context.DeadlineExceeded")
	}
}

func TestIsCancellationRejectsDeadlineExceeded(t *testing.T) {
	if IsCancellation(context.DeadlineExceeded) {
		t.Error("a timeout is not a cancellation and must not be treated as one")
	}
	if !IsCancellation(context.Canceled) {
		t.Error("expected context.Canceled to be reported as a cancellation")
	}
}
