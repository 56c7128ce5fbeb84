// Package app contains the permaweb application service and its port
// definitions.
package app

import (
	"context"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/winston"
)

// LedgerClient is the gateway surface the service depends on. Implementations
// return transport-level errors; the service classifies them.
type LedgerClient interface {
	GetPrice(ctx context.Context, numBytes int64, target string) (winston.Amount, error)
	GetBalance(ctx context.Context, address string) (winston.Amount, error)
	UploadData(ctx context.Context, w *domain.Wallet, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error)
	Transfer(ctx context.Context, w *domain.Wallet, target, quantity string) (*domain.TransferReceipt, error)
	GetStatus(ctx context.Context, id string) (*domain.TransactionStatus, error)
	GetData(ctx context.Context, id string) (data []byte, pending bool, err error)
	SearchByTags(ctx context.Context, tags []domain.Tag, limit int) ([]domain.SearchResult, error)
}

// LocalNode is the local development node surface: probing, mining, minting.
type LocalNode interface {
	ProbeAvailability(ctx context.Context) bool
	FetchNetworkInfo(ctx context.Context) (*domain.NetworkInfo, error)
	Mine(ctx context.Context, blockCount int) error
	Mint(ctx context.Context, address, amount string) error
	BuildClassification(ctx context.Context) domain.NetworkClassification
}
