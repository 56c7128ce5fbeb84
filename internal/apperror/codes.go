package apperror

// Code represents a unique error code for the plugin.
type Code string

// General error codes
const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidParameters Code = "INVALID_PARAMETERS"
	CodeInvalidConfig     Code = "INVALID_CONFIG"
	CodeDataNotFound      Code = "DATA_NOT_FOUND"
	CodeNetworkError      Code = "NETWORK_ERROR"
)

// Service lifecycle error codes
const (
	CodeServiceNotInitialized Code = "SERVICE_NOT_INITIALIZED"
	CodeWalletNotConnected    Code = "WALLET_NOT_CONNECTED"
	CodeInvalidWalletKey      Code = "INVALID_WALLET_KEY"
)

// Operation error codes
const (
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeTransactionFailed   Code = "TRANSACTION_FAILED"
	CodeUploadFailed        Code = "UPLOAD_FAILED"
	CodeRetrievalFailed     Code = "RETRIEVAL_FAILED"
	CodeTransferFailed      Code = "TRANSFER_FAILED"
	CodeSearchFailed        Code = "SEARCH_FAILED"
)

// Local development network error codes
const (
	CodeLocalNetworkNotRunning Code = "LOCAL_NETWORK_NOT_RUNNING"

	// CodeMiningRequired is raised both when a mine call fails and when a
	// transaction is still waiting on a mine call. The context field "reason"
	// distinguishes the two (mine_failed vs confirmation_pending).
	CodeMiningRequired Code = "MINING_REQUIRED"

	CodeMintFailed Code = "MINT_FAILED"
)
