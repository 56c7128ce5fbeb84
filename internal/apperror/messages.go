package apperror

// messages maps error codes to human-readable messages.
var messages = map[Code]string{
	CodeUnknown:           "An unknown error occurred",
	CodeInvalidParameters: "Invalid parameters provided",
	CodeInvalidConfig:     "Invalid gateway configuration",
	CodeDataNotFound:      "Data not found on the network",
	CodeNetworkError:      "Network request failed",

	CodeServiceNotInitialized: "Service has not been initialized",
	CodeWalletNotConnected:    "No wallet is connected",
	CodeInvalidWalletKey:      "Wallet key is malformed",

	CodeInsufficientBalance: "Insufficient balance for this operation",
	CodeTransactionFailed:   "Transaction failed",
	CodeUploadFailed:        "Upload to the network failed",
	CodeRetrievalFailed:     "Retrieval from the network failed",
	CodeTransferFailed:      "Token transfer failed",
	CodeSearchFailed:        "Tag search failed",

	CodeLocalNetworkNotRunning: "Local development network is not running",
	CodeMiningRequired:         "Mining is required before this operation can complete",
	CodeMintFailed:             "Token minting failed",
}

// remediation maps error codes to a short user-facing remediation suffix
// appended by RenderUserMessage.
var remediation = map[Code]string{
	CodeInvalidParameters: "Check the supplied parameters and try again.",
	CodeInvalidConfig:     "Review the gateway settings (host, protocol, port).",
	CodeDataNotFound:      "Verify the transaction id and that it has been confirmed.",
	CodeNetworkError:      "Check connectivity to the gateway and retry.",

	CodeServiceNotInitialized: "Call Initialize before issuing operations.",
	CodeWalletNotConnected:    "Configure ARWEAVE_WALLET_KEY with a valid wallet key.",
	CodeInvalidWalletKey:      "Supply a complete RSA JWK (kty, n, e, d, p, q, dp, dq, qi).",

	CodeInsufficientBalance:    "Top up the wallet before retrying. On the local network, mint test tokens.",
	CodeLocalNetworkNotRunning: "Start the local network (npx arlocal) or point the gateway at production.",
	CodeMiningRequired:         "Trigger a mine call (GET /mine) to confirm pending transactions.",
	CodeMintFailed:             "Minting is only available on the local development network.",
}
