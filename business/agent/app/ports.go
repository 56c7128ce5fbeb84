// Package app contains the agent-facing action handlers over the permaweb
// service.
package app

import (
	"context"

	permaweb "github.com/permalab/permaweb-agent/business/permaweb/app"
	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/winston"
)

// PermawebFacade is the slice of the permaweb service the handlers consume.
type PermawebFacade interface {
	IsLocalDev() bool
	Classification() domain.NetworkClassification
	LocalState() domain.LocalNetworkState

	CreateWallet(ctx context.Context) (*domain.Wallet, error)
	LoadWallet(ctx context.Context, raw string) (*domain.Wallet, error)
	Address() (string, error)

	GetBalance(ctx context.Context, address string) (winston.Amount, error)
	EstimatePrice(ctx context.Context, numBytes int64) (winston.Amount, error)
	UploadData(ctx context.Context, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error)
	RetrieveData(ctx context.Context, id string) ([]byte, error)
	GetTransactionStatus(ctx context.Context, id string) (*domain.TransactionStatus, error)
	Transfer(ctx context.Context, target, quantity string) (*domain.TransferReceipt, error)
	SearchByTags(ctx context.Context, tags []domain.Tag, limit int) ([]domain.SearchResult, error)

	GetPendingCount(ctx context.Context) (int, error)
	MineBlocks(ctx context.Context, blockCount int) error
	MintTokens(ctx context.Context, address, amount string) error
	WaitForConfirmation(ctx context.Context, id string, opts permaweb.WaitOptions) (*domain.TransactionStatus, error)
}

var _ PermawebFacade = (*permaweb.PermawebService)(nil)
