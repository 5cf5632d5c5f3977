package mosapi

import "testing"

func TestFromResultCode_DateOrderInvalid(t *testing.T) {
	err := FromResultCode("2012", "start after end")
	if err.Message != "Date order is invalid: start after end" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}

func TestFromResultCode_DateSyntaxInvalid(t *testing.T) {
	for _, code := range []string{"2013", "2014"} {
		err := FromResultCode(code, "bad format")
		if err.Message != "Date syntax is invalid: bad format" {
			t.Fatalf("unexpected message for code %s: %s", code, err.Message)
		}
	}
}

func TestFromResultCode_DefaultFallback(t *testing.T) {
	err := FromResultCode("9999", "unknown")
	if err.Message != "Bad Request (code: 9999): unknown" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := newErr(KindTransport, "inner", nil)
	wrapped := newErr(KindGeneric, "outer", cause)
	if wrapped.Unwrap() != cause {
		t.Fatal("expected Unwrap to return the wrapped cause")
	}
}
