package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestKindOfFollowsRegistry(t *testing.T) {
	cases := []struct {
		code Code
		want Kind
	}{
		{CodeValidation, KindValidation},
		{CodeInvalidChallenge, KindAuth},
		{CodeUnauthorized, KindAuth},
		{CodeForbidden, KindForbidden},
		{CodeProofNotFound, KindNotFound},
		{CodeConsentNotFound, KindNotFound},
		{CodeAdapterUnavailable, KindUnavailable},
		{CodeNotImplemented, KindNotImplemented},
		{Code("SOMETHING_ELSE"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(New(tc.code, "")); got != tc.want {
			t.Fatalf("kind of %s: got %s want %s", tc.code, got, tc.want)
		}
	}
	if KindOf(stdErrors.New("plain")) != KindInternal {
		t.Fatal("plain errors must be internal")
	}
}

func TestWrapKeepsCodeThroughChain(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := fmt.Errorf("probe: %w", Wrap(CodeAdapterUnavailable, cause, "rpc unreachable"))

	if CodeOf(err) != CodeAdapterUnavailable {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if !HasCode(err, CodeAdapterUnavailable) {
		t.Fatal("expected HasCode to match through fmt wrapping")
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if !ShouldAlert(err) {
		t.Fatal("adapter unavailability must alert")
	}
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("validation failed", map[string]string{
		"revenue":  "Revenue must be a positive number",
		"industry": "Invalid industry selection",
	})
	fields := err.Fields()
	if len(fields) != 2 || fields[0] != "industry" || fields[1] != "revenue" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if err.Metadata()["revenue"] == "" {
		t.Fatal("missing revenue detail")
	}
	if ShouldAlert(err) {
		t.Fatal("validation errors must not alert")
	}
}

func TestRegisterDefaultsKind(t *testing.T) {
	Register(Code("TEST_CUSTOM"), Attributes{Message: "custom"})
	if AttributesOf(Code("TEST_CUSTOM")).Kind != KindInternal {
		t.Fatal("expected internal kind default")
	}
}
