package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfThroughWrapping(t *testing.T) {
	base := New(NoSlotsAvailable, "offer %d has %d/%d slots filled", 7, 2, 2)
	wrapped := fmt.Errorf("approve: %w", base)

	if CodeOf(wrapped) != NoSlotsAvailable {
		t.Fatalf("code lost through wrapping: %q", CodeOf(wrapped))
	}
	if !Is(wrapped, NoSlotsAvailable) {
		t.Fatal("Is must see through fmt.Errorf wrapping")
	}
	if Is(wrapped, InvalidState) {
		t.Fatal("wrong code matched")
	}
}

func TestClasses(t *testing.T) {
	cases := map[Code]Class{
		OutOfFieldRange:      ClassValidation,
		DuplicateApplication: ClassValidation,
		NotLender:            ClassAuthorization,
		NotBorrower:          ClassAuthorization,
		ProofInvalid:         ClassProof,
		ProofNotRegistered:   ClassProof,
		NotYetOverdue:        ClassTiming,
		NetworkTimeout:       ClassTransient,
		LedgerUnavailable:    ClassTransient,
	}
	for code, want := range cases {
		if got := code.Class(); got != want {
			t.Errorf("%s class = %s, want %s", code, got, want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(LedgerUnavailable, "dial refused")) {
		t.Fatal("transient must be retryable")
	}
	if Retryable(New(DuplicateApplication, "")) {
		t.Fatal("validation must not be retryable")
	}
	if Retryable(errors.New("plain")) {
		t.Fatal("untyped errors are not retryable")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := Wrap(NetworkTimeout, cause, "verifier call")
	if !errors.Is(err, cause) {
		t.Fatal("cause must survive wrapping")
	}
}
