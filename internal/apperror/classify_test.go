package apperror_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/permalab/permaweb-agent/internal/apperror"
)

func TestClassify_LocalDevConnectionRefused(t *testing.T) {
	err := errors.New("dial tcp 127.0.0.1:1984: connection refused")
	fields := map[string]any{"host": "localhost", "port": 1984}

	appErr := apperror.Classify(err, "uploadData", fields)

	if appErr.Code != apperror.CodeLocalNetworkNotRunning {
		t.Errorf("expected LOCAL_NETWORK_NOT_RUNNING, got %s", appErr.Code)
	}
	if appErr.Operation != "uploadData" {
		t.Errorf("expected operation uploadData, got %s", appErr.Operation)
	}
	if appErr.Field("host") != "localhost" {
		t.Errorf("expected host context to survive classification")
	}
	if len(appErr.Troubleshooting) == 0 {
		t.Error("expected troubleshooting steps")
	}
	if _, ok := appErr.Field("localEnv").(map[string]string); !ok {
		t.Error("expected paired local env guidance")
	}
}

func TestClassify_ConnectionRefusedWithoutLocalContext(t *testing.T) {
	err := errors.New("dial tcp 34.1.2.3:443: connection refused")

	appErr := apperror.Classify(err, "uploadData", nil)

	if appErr.Code != apperror.CodeNetworkError {
		t.Errorf("expected NETWORK_ERROR, got %s", appErr.Code)
	}
}

func TestClassify_MiningMarker(t *testing.T) {
	err := errors.New("GET /mine returned 500")

	appErr := apperror.Classify(err, "mineBlocks", map[string]any{"queueLength": 3})

	if appErr.Code != apperror.CodeMiningRequired {
		t.Errorf("expected MINING_REQUIRED, got %s", appErr.Code)
	}
	if appErr.Field("reason") != "mine_failed" {
		t.Errorf("expected reason=mine_failed, got %v", appErr.Field("reason"))
	}
	if appErr.Field("queueLength") != 3 {
		t.Errorf("expected queueLength context, got %v", appErr.Field("queueLength"))
	}
}

func TestClassify_MintMarker(t *testing.T) {
	err := errors.New("mint request rejected with status 400")

	appErr := apperror.Classify(err, "mintTokens", nil)

	if appErr.Code != apperror.CodeMintFailed {
		t.Errorf("expected MINT_FAILED, got %s", appErr.Code)
	}
	if appErr.Field("addressFormat") != apperror.AddressFormat {
		t.Error("expected addressFormat guidance")
	}
	if appErr.Field("amountFormat") != apperror.AmountFormat {
		t.Error("expected amountFormat guidance")
	}
}

func TestClassify_GenericHeuristics(t *testing.T) {
	cases := []struct {
		msg  string
		want apperror.Code
	}{
		{"insufficient funds for transaction", apperror.CodeInsufficientBalance},
		{"invalid address supplied", apperror.CodeInvalidParameters},
		{"wallet not connected", apperror.CodeWalletNotConnected},
		{"transaction not found", apperror.CodeDataNotFound},
		{"tx failed during post", apperror.CodeTransactionFailed},
		{"request timeout after 20s", apperror.CodeNetworkError},
		{"something inexplicable", apperror.CodeUnknown},
	}

	for _, tc := range cases {
		appErr := apperror.Classify(errors.New(tc.msg), "op", nil)
		if appErr.Code != tc.want {
			t.Errorf("message %q: expected %s, got %s", tc.msg, tc.want, appErr.Code)
		}
	}
}

func TestClassify_PassThroughExistingAppError(t *testing.T) {
	orig := apperror.New(apperror.CodeInvalidParameters, apperror.WithMessage("bad amount"))

	appErr := apperror.Classify(orig, "transfer", map[string]any{"amount": "-1"})

	if appErr.Code != apperror.CodeInvalidParameters {
		t.Errorf("expected pass-through code, got %s", appErr.Code)
	}
	if appErr.Operation != "transfer" {
		t.Errorf("expected operation to be filled in, got %s", appErr.Operation)
	}
	if appErr.Field("amount") != "-1" {
		t.Error("expected fields to merge on pass-through")
	}
}

func TestClassify_PassThroughDoesNotModifyOriginal(t *testing.T) {
	orig := apperror.New(apperror.CodeMiningRequired,
		apperror.WithField("reason", "confirmation_pending"))

	got := apperror.Classify(orig, "retrieveData", map[string]any{"host": "localhost"})

	if got.Operation != "retrieveData" {
		t.Errorf("expected operation on the returned copy, got %q", got.Operation)
	}
	if got.Field("host") != "localhost" {
		t.Error("expected merged fields on the returned copy")
	}
	if got.Field("reason") != "confirmation_pending" {
		t.Error("expected the copy to carry the original fields")
	}
	if orig.Operation != "" {
		t.Errorf("classification must not set the operation on the original, got %q", orig.Operation)
	}
	if orig.Field("host") != nil {
		t.Error("classification must not merge fields into the original")
	}
}

func TestIsRetryable_Table(t *testing.T) {
	nonRetryable := []apperror.Code{
		apperror.CodeLocalNetworkNotRunning,
		apperror.CodeMiningRequired,
		apperror.CodeMintFailed,
		apperror.CodeInsufficientBalance,
		apperror.CodeInvalidParameters,
		apperror.CodeDataNotFound,
		apperror.CodeInvalidWalletKey,
		apperror.CodeInvalidConfig,
		apperror.CodeWalletNotConnected,
	}
	for _, code := range nonRetryable {
		if apperror.IsRetryable(apperror.New(code)) {
			t.Errorf("expected %s to be non-retryable", code)
		}
	}

	retryable := []apperror.Code{
		apperror.CodeUnknown,
		apperror.CodeTransactionFailed,
		apperror.CodeNetworkError,
	}
	for _, code := range retryable {
		if !apperror.IsRetryable(apperror.New(code)) {
			t.Errorf("expected %s to be retryable", code)
		}
	}
}

func TestIsRetryable_ContextOverride(t *testing.T) {
	err := apperror.New(apperror.CodeNetworkError, apperror.WithRetryable(false))
	if apperror.IsRetryable(err) {
		t.Error("expected context override to make NETWORK_ERROR non-retryable")
	}

	err = apperror.New(apperror.CodeMiningRequired, apperror.WithRetryable(true))
	if !apperror.IsRetryable(err) {
		t.Error("expected context override to make MINING_REQUIRED retryable")
	}
}

func TestRenderUserMessage(t *testing.T) {
	err := apperror.Classify(
		errors.New("connection refused"),
		"getStatus",
		map[string]any{"host": "localhost", "port": 1984},
	)

	msg := apperror.RenderUserMessage(err)

	if !strings.Contains(msg, "(operation: getStatus)") {
		t.Errorf("expected operation context in message, got %q", msg)
	}
	if !strings.Contains(msg, "1. Start the local network") {
		t.Errorf("expected numbered troubleshooting steps, got %q", msg)
	}
	if !strings.Contains(msg, "ARWEAVE_PORT=1984") {
		t.Errorf("expected KEY=value env guidance, got %q", msg)
	}
	if !strings.Contains(msg, "ARWEAVE_PROTOCOL=https") {
		t.Errorf("expected production env pairing, got %q", msg)
	}
}
