package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("decode failed")
	err := Wrap(ErrConversion, "worker", "convert photo", "unsupported pixel format", base)

	if !errors.Is(err, ErrConversion) {
		t.Fatalf("expected conversion marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	want := "conversion error: worker: convert photo: unsupported pixel format: decode failed"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrValidation, "intake", "", "attachment count exceeds cap", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if err.Error() != "validation error: intake: attachment count exceeds cap" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapNilMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", errors.New("boom"))
	if err == nil {
		t.Fatal("expected non-nil error")
	}
}
