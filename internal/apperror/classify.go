package apperror

import (
	"errors"
	"regexp"
	"strings"
)

// Pattern tables used by Classify. Matching is performed on the lowercased
// error message; order of the checks below is part of the contract, because a
// connection-refused error against a local-dev endpoint must classify as
// LOCAL_NETWORK_NOT_RUNNING and never as generic NETWORK_ERROR.
var (
	miningMarkers = regexp.MustCompile(`\bmining\b|\bmine\b|/mine\b`)
	mintMarkers   = regexp.MustCompile(`\bminting\b|\bmint\b|/mint/`)

	localDevTerms = []string{
		"arlocal",
		"local network",
		"local development",
		"queue_length",
	}

	transportFailures = []string{
		"connection refused",
		"econnrefused",
		"connection reset",
		"no such host",
		"fetch failed",
		"socket hang up",
		"network error",
		"timeout",
		"deadline exceeded",
		"context canceled",
		"service unavailable",
	}

	balancePhrases = []string{
		"insufficient balance",
		"insufficient funds",
		"not enough balance",
		"not enough funds",
	}

	parameterPhrases = []string{
		"invalid address",
		"invalid amount",
		"invalid format",
		"invalid parameter",
		"malformed",
		"must be a positive",
	}

	walletPhrases = []string{
		"wallet not connected",
		"no wallet",
		"wallet key",
	}

	notFoundPhrases = []string{
		"not found",
		"404",
		"no such transaction",
	}
)

// AddressFormat and AmountFormat are the canonical shapes attached to mint
// classification context so callers can render format guidance.
const (
	AddressFormat = "43-character base64url string ([A-Za-z0-9_-]{43})"
	AmountFormat  = "positive integer string, denominated in winston"
)

// localDevEnv and productionEnv are the paired settings attached to
// LOCAL_NETWORK_NOT_RUNNING errors.
func localDevEnv() map[string]string {
	return map[string]string{
		"ARWEAVE_GATEWAY":  "localhost",
		"ARWEAVE_PROTOCOL": "http",
		"ARWEAVE_PORT":     "1984",
	}
}

func productionEnv() map[string]string {
	return map[string]string{
		"ARWEAVE_GATEWAY":  "arweave.net",
		"ARWEAVE_PROTOCOL": "https",
		"ARWEAVE_PORT":     "443",
	}
}

// Classify maps a raw transport/SDK error onto the error taxonomy. The
// supplied fields become the error's context map; fields "host" and "port"
// signal that the failing call targeted a local development endpoint.
// An error that already is an AppError is never modified; Classify returns
// a copy carrying the operation and the merged fields instead.
func Classify(err error, operation string, fields map[string]any) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.withContext(operation, fields)
	}

	msg := strings.ToLower(err.Error())
	localCtx := contextIsLocalDev(fields)

	// Local-dev detection runs before any generic heuristic.
	switch {
	case miningMarkers.MatchString(msg):
		opts := []Option{
			WithOperation(operation),
			WithCause(err),
			WithFields(fields),
			WithField("reason", "mine_failed"),
			WithTroubleshooting(
				"Confirm the local network is running and reachable",
				"Check the pending queue with GET /info (queue_length)",
				"Trigger block production with GET /mine",
			),
		}
		return New(CodeMiningRequired, opts...)

	case mintMarkers.MatchString(msg):
		return New(CodeMintFailed,
			WithOperation(operation),
			WithCause(err),
			WithFields(fields),
			WithField("addressFormat", AddressFormat),
			WithField("amountFormat", AmountFormat),
			WithTroubleshooting(
				"Minting only works against the local development network",
				"Verify the address is a 43-character base64url string",
				"Verify the amount is a positive integer winston string",
			),
		)

	case containsAny(msg, localDevTerms) || (localCtx && containsAny(msg, transportFailures)):
		return New(CodeLocalNetworkNotRunning,
			WithOperation(operation),
			WithCause(err),
			WithFields(fields),
			WithField("localEnv", localDevEnv()),
			WithField("productionEnv", productionEnv()),
			WithTroubleshooting(
				"Start the local network: npx arlocal",
				"Verify it responds: curl http://localhost:1984/info",
				"Or switch the gateway settings to production",
			),
		)
	}

	// Generic heuristics, in precedence order.
	code := CodeUnknown
	switch {
	case containsAny(msg, balancePhrases):
		code = CodeInsufficientBalance
	case containsAny(msg, parameterPhrases):
		code = CodeInvalidParameters
	case containsAny(msg, walletPhrases):
		code = CodeWalletNotConnected
	case containsAny(msg, notFoundPhrases):
		code = CodeDataNotFound
	case strings.Contains(msg, "transaction failed") || strings.Contains(msg, "tx failed"):
		code = CodeTransactionFailed
	case strings.Contains(msg, "upload"):
		code = CodeUploadFailed
	case strings.Contains(msg, "retriev"):
		code = CodeRetrievalFailed
	case strings.Contains(msg, "transfer"):
		code = CodeTransferFailed
	case strings.Contains(msg, "search") || strings.Contains(msg, "graphql"):
		code = CodeSearchFailed
	case containsAny(msg, transportFailures):
		code = CodeNetworkError
	}

	return New(code,
		WithOperation(operation),
		WithCause(err),
		WithFields(fields),
		WithMessage(err.Error()),
	)
}

// contextIsLocalDev reports whether the context fields point at a local
// development endpoint.
func contextIsLocalDev(fields map[string]any) bool {
	if fields == nil {
		return false
	}
	if v, ok := fields["isLocalDev"].(bool); ok && v {
		return true
	}
	host, _ := fields["host"].(string)
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	if port, ok := fields["port"].(int); ok && port == 1984 {
		return true
	}
	return false
}

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// retryableByDefault holds the codes that are retryable unless the error's
// context overrides the classification. Every other code requires caller
// action rather than a retry.
var retryableByDefault = map[Code]bool{
	CodeUnknown:           true,
	CodeTransactionFailed: true,
	CodeNetworkError:      true,
}

// IsRetryable reports whether retrying the failed operation can succeed
// without caller intervention. The context field "isRetryable" overrides the
// per-code default.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return retryableByDefault[CodeUnknown]
	}

	if v, ok := appErr.Field("isRetryable").(bool); ok {
		return v
	}
	return retryableByDefault[appErr.Code]
}
