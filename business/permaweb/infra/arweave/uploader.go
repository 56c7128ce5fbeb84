package arweave

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/permalab/permaweb-agent/internal/httpclient"
)

const chunkEndpoint = "/chunk"

// chunkWire is the chunk upload body for POST /chunk.
type chunkWire struct {
	DataRoot string `json:"data_root"`
	DataSize string `json:"data_size"`
	DataPath string `json:"data_path"`
	Offset   string `json:"offset"`
	Chunk    string `json:"chunk"`
}

// Uploader posts a signed transaction and streams its data chunk by chunk.
// Transactions a single chunk wide go inline through SubmitTransaction
// instead; the uploader exists for payloads above maxChunkSize.
type Uploader struct {
	client *Client
	tx     *Transaction
	data   []byte

	chunks []chunk
	proofs [][]byte

	txPosted  bool
	nextChunk int
}

// NewUploader prepares a chunked upload for a signed transaction. The data
// must be the payload the transaction's data_root was computed from.
func (c *Client) NewUploader(tx *Transaction, data []byte) (*Uploader, error) {
	if tx.Signature == "" {
		return nil, fmt.Errorf("transaction is not signed")
	}

	chunks, proofs, root := chunkProofs(data)
	if got := base64.RawURLEncoding.EncodeToString(root); got != tx.DataRoot {
		return nil, fmt.Errorf("data does not match the transaction data_root")
	}

	return &Uploader{
		client: c,
		tx:     tx,
		data:   data,
		chunks: chunks,
		proofs: proofs,
	}, nil
}

// TotalChunks reports the number of chunks the payload splits into.
func (u *Uploader) TotalChunks() int {
	return len(u.chunks)
}

// UploadedChunks reports how many chunks have been accepted so far.
func (u *Uploader) UploadedChunks() int {
	return u.nextChunk
}

// IsComplete reports whether the transaction header and every chunk have been
// posted.
func (u *Uploader) IsComplete() bool {
	return u.txPosted && u.nextChunk >= len(u.chunks)
}

// PctComplete reports upload progress in percent.
func (u *Uploader) PctComplete() float64 {
	if len(u.chunks) == 0 {
		if u.txPosted {
			return 100
		}
		return 0
	}
	return float64(u.nextChunk) / float64(len(u.chunks)) * 100
}

// UploadChunk advances the upload by one step: the first call posts the
// transaction header without its data, each following call posts the next
// chunk. Calling on a complete upload is a no-op.
func (u *Uploader) UploadChunk(ctx context.Context) error {
	if u.IsComplete() {
		return nil
	}

	if !u.txPosted {
		if err := u.postHeader(ctx); err != nil {
			return err
		}
		u.txPosted = true
		return nil
	}

	if err := u.postChunk(ctx, u.nextChunk); err != nil {
		return err
	}
	u.nextChunk++
	return nil
}

// Run drives the upload to completion.
func (u *Uploader) Run(ctx context.Context) error {
	for !u.IsComplete() {
		if err := u.UploadChunk(ctx); err != nil {
			return err
		}
	}
	return nil
}

// postHeader submits the transaction with the data field stripped; the
// payload follows through the chunk endpoint.
func (u *Uploader) postHeader(ctx context.Context) error {
	header := *u.tx
	header.Data = ""
	return u.client.SubmitTransaction(ctx, &header)
}

func (u *Uploader) postChunk(ctx context.Context, index int) error {
	c := u.chunks[index]

	ctx, span := u.client.tracer.Start(ctx, "gateway.upload_chunk",
		trace.WithAttributes(
			attribute.String("tx.id", u.tx.ID),
			attribute.Int("chunk", index),
		))
	defer span.End()

	body := chunkWire{
		DataRoot: u.tx.DataRoot,
		DataSize: u.tx.DataSize,
		DataPath: base64.RawURLEncoding.EncodeToString(u.proofs[index]),
		Offset:   strconv.Itoa(c.maxByteRange - 1),
		Chunk:    base64.RawURLEncoding.EncodeToString(u.data[c.minByteRange:c.maxByteRange]),
	}

	resp, err := u.client.call(ctx, func() (*httpclient.Response, error) {
		return u.client.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "chunk")),
		).SetBody(body).Post(ctx, chunkEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chunk %d upload failed: %w", index, err)
	}
	if resp.IsError() {
		return fmt.Errorf("chunk %d upload failed: HTTP %d: %s", index, resp.StatusCode, resp.String())
	}

	return nil
}
