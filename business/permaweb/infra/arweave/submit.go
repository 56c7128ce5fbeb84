package arweave

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
)

// UploadData prices, builds, signs and submits a data transaction.
func (c *Client) UploadData(ctx context.Context, w *domain.Wallet, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.upload",
		trace.WithAttributes(attribute.Int("data.size", len(data))))
	defer span.End()

	reward, err := c.GetPrice(ctx, int64(len(data)), "")
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	anchor, err := c.GetTxAnchor(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	tx := NewDataTransaction(data, tags, reward.String(), anchor)
	if err := tx.Sign(w); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	// Payloads a single chunk wide travel inline with the transaction;
	// anything larger streams through the chunk endpoint.
	if len(data) > maxChunkSize {
		uploader, err := c.NewUploader(tx, data)
		if err != nil {
			return nil, fmt.Errorf("upload failed: %w", err)
		}
		if err := uploader.Run(ctx); err != nil {
			return nil, fmt.Errorf("upload failed: %w", err)
		}
		c.logger.Info(ctx, "chunked upload complete",
			"id", tx.ID, "chunks", uploader.TotalChunks())
	} else if err := c.SubmitTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	span.SetAttributes(attribute.String("tx.id", tx.ID))

	return &domain.UploadReceipt{
		ID:        tx.ID,
		DataSize:  int64(len(data)),
		Reward:    tx.Reward,
		Tags:      tags,
		Timestamp: time.Now(),
	}, nil
}

// Transfer prices, builds, signs and submits a token transfer.
func (c *Client) Transfer(ctx context.Context, w *domain.Wallet, target, quantity string) (*domain.TransferReceipt, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.transfer",
		trace.WithAttributes(attribute.String("target", target)))
	defer span.End()

	reward, err := c.GetPrice(ctx, 0, target)
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	anchor, err := c.GetTxAnchor(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	tx := NewTransferTransaction(target, quantity, reward.String(), anchor)
	if err := tx.Sign(w); err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	if err := c.SubmitTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	span.SetAttributes(attribute.String("tx.id", tx.ID))

	return &domain.TransferReceipt{
		ID:        tx.ID,
		Target:    target,
		Quantity:  quantity,
		Reward:    tx.Reward,
		Timestamp: time.Now(),
	}, nil
}
