package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/permalab/permaweb-agent/internal/apperror"
)

func TestNew_DefaultMessage(t *testing.T) {
	err := apperror.New(apperror.CodeWalletNotConnected)
	if err.Message != "No wallet is connected" {
		t.Errorf("unexpected default message: %q", err.Message)
	}
}

func TestWrap_PreservesAppError(t *testing.T) {
	orig := apperror.New(apperror.CodeMintFailed)
	wrapped := fmt.Errorf("outer: %w", orig)

	result := apperror.Wrap(wrapped, apperror.CodeUnknown, "mintTokens")

	if result.Code != apperror.CodeMintFailed {
		t.Errorf("expected original code preserved, got %s", result.Code)
	}
	if result.Operation != "mintTokens" {
		t.Errorf("expected operation filled in, got %s", result.Operation)
	}
	if orig.Operation != "" {
		t.Errorf("wrapping must not set the operation on the original, got %q", orig.Operation)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := apperror.New(apperror.CodeNetworkError, apperror.WithCause(cause))

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIs_ComparesByCode(t *testing.T) {
	a := apperror.New(apperror.CodeUploadFailed)
	b := apperror.New(apperror.CodeUploadFailed, apperror.WithMessage("different text"))

	if !errors.Is(a, b) {
		t.Error("expected errors with same code to match")
	}
}

func TestGetCode(t *testing.T) {
	if apperror.GetCode(errors.New("plain")) != apperror.CodeUnknown {
		t.Error("expected UNKNOWN for plain errors")
	}
	if apperror.GetCode(apperror.New(apperror.CodeSearchFailed)) != apperror.CodeSearchFailed {
		t.Error("expected SEARCH_FAILED")
	}
}

func TestToLog_IncludesContext(t *testing.T) {
	err := apperror.New(apperror.CodeMiningRequired,
		apperror.WithOperation("retrieveData"),
		apperror.WithField("queueLength", 2),
		apperror.WithCause(errors.New("pending")),
	)

	log := err.ToLog()
	if log["operation"] != "retrieveData" {
		t.Error("expected operation in log output")
	}
	if log["ctx.queueLength"] != 2 {
		t.Error("expected context field in log output")
	}
	if log["cause"] != "pending" {
		t.Error("expected cause in log output")
	}
}
