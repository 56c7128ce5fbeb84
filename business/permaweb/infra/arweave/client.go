// Package arweave implements the gateway ledger client: pricing, transaction
// submission, status lookups, data retrieval, balances and tag search. The
// same client speaks to production gateways and to a local development node;
// only the endpoints above the ledger API differ between the two.
package arweave

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/apperror"
	"github.com/permalab/permaweb-agent/internal/circuitbreaker"
	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/httpclient"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/ratelimit"
	"github.com/permalab/permaweb-agent/internal/winston"
)

const (
	tracerName = "permaweb.gateway"

	priceEndpoint   = "/price"
	anchorEndpoint  = "/tx_anchor"
	txEndpoint      = "/tx"
	walletEndpoint  = "/wallet"
	graphqlEndpoint = "/graphql"

	// Gateway requests per minute before the limiter starts queueing.
	defaultRequestsPerMinute = 120
)

// searchQuery is the GraphQL query backing tag search.
const searchQuery = `query($tags: [TagFilter!], $first: Int) {
  transactions(tags: $tags, first: $first) {
    edges {
      node {
        id
        owner { address }
        data { size }
        tags { name value }
        block { height }
      }
    }
  }
}`

// Client is the gateway ledger client. All calls pass through a shared rate
// limiter and circuit breaker.
type Client struct {
	http    httpclient.Client
	cfg     *config.ConnectionConfig
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	limiter *ratelimit.Limiter
}

// NewClient creates a gateway client for the configured endpoint.
func NewClient(cfg *config.ConnectionConfig, log logger.LoggerInterface) (*Client, error) {
	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("gateway"),
		httpclient.WithBaseURL(cfg.BaseURL()),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		http:    client,
		cfg:     cfg,
		logger:  log,
		tracer:  tracer,
		breaker: circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig("gateway")),
		limiter: ratelimit.New(defaultRequestsPerMinute),
	}, nil
}

// call runs a request through the limiter and breaker.
func (c *Client) call(ctx context.Context, fn func() (*httpclient.Response, error)) (*httpclient.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.breaker.Execute(fn)
}

// GetPrice fetches the upload fee in winston for numBytes of data. A
// non-empty target prices a transfer to a fresh wallet instead.
func (c *Client) GetPrice(ctx context.Context, numBytes int64, target string) (winston.Amount, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_price",
		trace.WithAttributes(attribute.Int64("bytes", numBytes)))
	defer span.End()

	endpoint := fmt.Sprintf("%s/%d", priceEndpoint, numBytes)
	if target != "" {
		endpoint = fmt.Sprintf("%s/%s", endpoint, target)
	}

	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "price")),
		).Get(ctx, endpoint)
	})
	if err != nil {
		span.RecordError(err)
		return winston.Zero(), fmt.Errorf("price lookup failed: %w", err)
	}
	if resp.IsError() {
		return winston.Zero(), fmt.Errorf("price lookup failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	amount, err := winston.Parse(resp.String())
	if err != nil {
		return winston.Zero(), fmt.Errorf("price lookup returned a non-winston body %q: %w", resp.String(), err)
	}
	return amount, nil
}

// GetTxAnchor fetches the anchor value for the last_tx field of a new
// transaction.
func (c *Client) GetTxAnchor(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_tx_anchor")
	defer span.End()

	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "tx_anchor")),
		).Get(ctx, anchorEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("anchor fetch failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anchor fetch failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	return strings.TrimSpace(resp.String()), nil
}

// SubmitTransaction posts a signed transaction to the ledger.
func (c *Client) SubmitTransaction(ctx context.Context, tx *Transaction) error {
	if tx.Signature == "" {
		return fmt.Errorf("transaction is not signed")
	}

	ctx, span := c.tracer.Start(ctx, "gateway.submit_tx",
		trace.WithAttributes(attribute.String("tx.id", tx.ID)))
	defer span.End()

	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "tx")),
		).SetBody(tx).Post(ctx, txEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("transaction submit failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("transaction failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	c.logger.Info(ctx, "transaction submitted", "id", tx.ID)
	return nil
}

// GetStatus looks up the confirmation status of a transaction. A 404 maps to
// StatusNotFound without an error; only transport and server failures error.
func (c *Client) GetStatus(ctx context.Context, id string) (*domain.TransactionStatus, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_status",
		trace.WithAttributes(attribute.String("tx.id", id)))
	defer span.End()

	var wire txStatusWire
	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "tx_status")),
		).SetResult(&wire).Get(ctx, fmt.Sprintf("%s/%s/status", txEndpoint, id))
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("status lookup failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &domain.TransactionStatus{
			ID:    id,
			State: domain.StatusConfirmed,
			Confirmed: &domain.Confirmation{
				BlockHeight:       wire.BlockHeight,
				BlockHash:         wire.BlockIndepHash,
				ConfirmationCount: wire.NumberOfConfirmations,
			},
		}, nil
	case http.StatusAccepted:
		return &domain.TransactionStatus{ID: id, State: domain.StatusPending}, nil
	case http.StatusNotFound:
		return &domain.TransactionStatus{ID: id, State: domain.StatusNotFound}, nil
	default:
		return nil, fmt.Errorf("status lookup failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}
}

// GetTransaction fetches the full transaction record.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_tx",
		trace.WithAttributes(attribute.String("tx.id", id)))
	defer span.End()

	var tx Transaction
	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "tx")),
		).SetResult(&tx).Get(ctx, fmt.Sprintf("%s/%s", txEndpoint, id))
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("transaction fetch failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperror.New(apperror.CodeDataNotFound,
			apperror.WithMessage(fmt.Sprintf("transaction %s not found", id)),
			apperror.WithField("id", id))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("transaction fetch failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	return &tx, nil
}

// GetData fetches the data payload of a transaction. The second return is
// true when the transaction is known but not yet mined into a block, which
// the gateway signals with 202.
func (c *Client) GetData(ctx context.Context, id string) ([]byte, bool, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_data",
		trace.WithAttributes(attribute.String("tx.id", id)))
	defer span.End()

	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "data")),
		).Get(ctx, "/"+id)
	})
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("data retrieval failed: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil, true, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, apperror.New(apperror.CodeDataNotFound,
			apperror.WithMessage(fmt.Sprintf("no data found for transaction %s", id)),
			apperror.WithField("id", id))
	case resp.IsError():
		return nil, false, fmt.Errorf("data retrieval failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	span.SetAttributes(attribute.Int("data.size", len(resp.Body())))
	return resp.Body(), false, nil
}

// GetBalance fetches a wallet balance in winston.
func (c *Client) GetBalance(ctx context.Context, address string) (winston.Amount, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.get_balance",
		trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "balance")),
		).Get(ctx, fmt.Sprintf("%s/%s/balance", walletEndpoint, address))
	})
	if err != nil {
		span.RecordError(err)
		return winston.Zero(), fmt.Errorf("balance lookup failed: %w", err)
	}
	if resp.IsError() {
		return winston.Zero(), fmt.Errorf("balance lookup failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}

	amount, err := winston.Parse(resp.String())
	if err != nil {
		return winston.Zero(), fmt.Errorf("balance lookup returned a non-winston body %q: %w", resp.String(), err)
	}
	return amount, nil
}

// SearchByTags queries the gateway GraphQL endpoint for transactions
// matching every supplied tag.
func (c *Client) SearchByTags(ctx context.Context, tags []domain.Tag, limit int) ([]domain.SearchResult, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.search",
		trace.WithAttributes(attribute.Int("tags", len(tags))))
	defer span.End()

	filters := make([]gqlTagFilter, 0, len(tags))
	for _, tag := range tags {
		filters = append(filters, gqlTagFilter{Name: tag.Name, Values: []string{tag.Value}})
	}

	body := gqlRequest{
		Query: searchQuery,
		Variables: map[string]any{
			"tags":  filters,
			"first": limit,
		},
	}

	var result gqlResponse
	resp, err := c.call(ctx, func() (*httpclient.Response, error) {
		return c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "graphql")),
		).SetBody(body).SetResult(&result).Post(ctx, graphqlEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search failed: HTTP %d: %s", resp.StatusCode, resp.String())
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search failed: graphql: %s", result.Errors[0].Message)
	}

	results := make([]domain.SearchResult, 0, len(result.Data.Transactions.Edges))
	for _, edge := range result.Data.Transactions.Edges {
		node := edge.Node

		size, _ := strconv.ParseInt(node.Data.Size, 10, 64)
		sr := domain.SearchResult{
			ID:       node.ID,
			Owner:    node.Owner.Address,
			DataSize: size,
		}
		for _, tag := range node.Tags {
			sr.Tags = append(sr.Tags, domain.Tag{Name: tag.Name, Value: tag.Value})
		}
		if node.Block != nil {
			sr.Height = node.Block.Height
		}
		results = append(results, sr)
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}
