package domain

import "time"

// Tag is a name/value pair attached to a transaction. Both members travel
// base64url-encoded on the wire; this type holds the decoded form.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConfirmationState describes where a transaction sits in its lifecycle.
type ConfirmationState string

const (
	StatusConfirmed ConfirmationState = "confirmed"
	StatusPending   ConfirmationState = "pending"
	StatusNotFound  ConfirmationState = "not_found"
)

// Confirmation carries the block placement of a confirmed transaction.
type Confirmation struct {
	BlockHeight       int    `json:"block_height"`
	BlockHash         string `json:"block_indep_hash"`
	ConfirmationCount int    `json:"number_of_confirmations"`
}

// TransactionStatus is the result of a status lookup. Confirmed is nil
// unless State is StatusConfirmed.
type TransactionStatus struct {
	ID        string            `json:"id"`
	State     ConfirmationState `json:"state"`
	Confirmed *Confirmation     `json:"confirmed,omitempty"`
}

// IsFinal reports whether the status will not change with further polling
// alone.
func (s *TransactionStatus) IsFinal() bool {
	return s.State == StatusConfirmed
}

// UploadReceipt describes a successfully submitted data transaction.
type UploadReceipt struct {
	ID        string    `json:"id"`
	DataSize  int64     `json:"dataSize"`
	Reward    string    `json:"reward"`
	Tags      []Tag     `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferReceipt describes a submitted token transfer.
type TransferReceipt struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Quantity  string    `json:"quantity"`
	Reward    string    `json:"reward"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchResult is one transaction returned by a tag search.
type SearchResult struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	DataSize int64  `json:"dataSize"`
	Tags     []Tag  `json:"tags"`
	Height   int    `json:"height,omitempty"`
}
