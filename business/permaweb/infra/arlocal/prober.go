// Package arlocal talks to a local development network node (arlocal) for
// probing, mining and minting. Production gateways never see these endpoints.
package arlocal

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/apm"
	"github.com/permalab/permaweb-agent/internal/apperror"
	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/httpclient"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/winston"
)

const (
	tracerName = "permaweb.arlocal"

	infoEndpoint = "/info"
	mineEndpoint = "/mine"
	mintEndpoint = "/mint"
)

// Prober probes and drives a local development node. Probe calls swallow
// failures; fetch and action calls raise classified errors.
type Prober struct {
	client     httpclient.Client
	mineClient httpclient.Client
	cfg        *config.ConnectionConfig
	logger     logger.LoggerInterface
	tracer     apm.Tracer
}

// NewProber creates a prober for the configured endpoint. Mining gets its own
// client because block production can take noticeably longer than a plain
// request; it waits twice the configured timeout.
func NewProber(cfg *config.ConnectionConfig, log logger.LoggerInterface) (*Prober, error) {
	tracer := apm.NewTracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("arlocal"),
		httpclient.WithBaseURL(cfg.BaseURL()),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer.GetTracer()),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	mineClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("arlocal"),
		httpclient.WithBaseURL(cfg.BaseURL()),
		httpclient.WithRequestTimeout(2*cfg.Timeout),
		httpclient.WithTracer(tracer.GetTracer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mine HTTP client: %w", err)
	}

	return &Prober{
		client:     client,
		mineClient: mineClient,
		cfg:        cfg,
		logger:     log,
		tracer:     tracer,
	}, nil
}

// endpointFields is the context attached to every raised error so
// classification downstream stays local-dev aware.
func (p *Prober) endpointFields() map[string]any {
	return map[string]any{
		"host":       p.cfg.Host,
		"port":       p.cfg.Port,
		"isLocalDev": p.cfg.IsLocalDev(),
	}
}

// ProbeAvailability reports whether the local node answers GET /info. It
// never returns an error; an unreachable or misbehaving node is simply "not
// available".
func (p *Prober) ProbeAvailability(ctx context.Context) bool {
	ctx, span := p.tracer.StartSpanFromContext(ctx, "arlocal.probe")
	defer span.End()

	resp, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "info")),
	).Get(ctx, infoEndpoint)
	if err != nil {
		span.RecordError(err)
		p.logger.Debug(ctx, "local network probe failed", "error", err)
		return false
	}

	if resp.IsError() {
		p.logger.Debug(ctx, "local network probe got error status", "status", resp.StatusCode)
		return false
	}

	if _, err := domain.ParseNetworkInfo(resp.Body()); err != nil {
		p.logger.Debug(ctx, "local network probe response not recognized", "error", err)
		return false
	}

	return true
}

// FetchNetworkInfo fetches and validates GET /info. Unlike ProbeAvailability,
// every failure raises LOCAL_NETWORK_NOT_RUNNING, including a reachable
// endpoint that returns a body missing required fields.
func (p *Prober) FetchNetworkInfo(ctx context.Context) (*domain.NetworkInfo, error) {
	ctx, span := p.tracer.StartSpanFromContext(ctx, "arlocal.fetch_info")
	defer span.End()

	resp, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "info")),
	).Get(ctx, infoEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, p.notRunning(err, "fetchNetworkInfo")
	}

	if resp.IsError() {
		return nil, p.notRunning(
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String()), "fetchNetworkInfo")
	}

	info, err := domain.ParseNetworkInfo(resp.Body())
	if err != nil {
		span.RecordError(err)
		return nil, p.notRunning(err, "fetchNetworkInfo")
	}

	span.SetAttributes(
		attribute.Int("queue_length", info.QueueLength),
		attribute.Int("height", info.Height),
	)

	return info, nil
}

// Mine triggers production of blockCount blocks. The count is validated
// before any network traffic.
func (p *Prober) Mine(ctx context.Context, blockCount int) error {
	if blockCount < 1 {
		return apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("mine"),
			apperror.WithMessage(fmt.Sprintf("block count must be a positive integer, got %d", blockCount)),
			apperror.WithField("blockCount", blockCount))
	}

	ctx, span := p.tracer.StartSpanFromContext(ctx, "arlocal.mine",
		trace.WithAttributes(attribute.Int("blocks", blockCount)))
	defer span.End()

	endpoint := mineEndpoint
	if blockCount > 1 {
		endpoint = fmt.Sprintf("%s/%d", mineEndpoint, blockCount)
	}

	resp, err := p.mineClient.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "mine")),
	).Get(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		return p.mineFailed(err)
	}
	if resp.IsError() {
		return p.mineFailed(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String()))
	}

	p.logger.Info(ctx, "mined blocks on local network", "blocks", blockCount)
	return nil
}

// Mint credits amount winston to address on the local node. Both parameters
// are trimmed and validated before any network traffic.
func (p *Prober) Mint(ctx context.Context, address, amount string) error {
	address = strings.TrimSpace(address)
	amount = strings.TrimSpace(amount)

	if !domain.ValidAddress(address) {
		return apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("mint"),
			apperror.WithMessage(fmt.Sprintf("invalid address %q", address)),
			apperror.WithField("addressFormat", apperror.AddressFormat))
	}
	if !validMintAmount(amount) {
		return apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("mint"),
			apperror.WithMessage(fmt.Sprintf("invalid amount %q", amount)),
			apperror.WithField("amountFormat", apperror.AmountFormat))
	}

	ctx, span := p.tracer.StartSpanFromContext(ctx, "arlocal.mint",
		trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	endpoint := fmt.Sprintf("%s/%s/%s", mintEndpoint, address, amount)

	resp, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "mint")),
	).Get(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		return p.mintFailed(err, address, amount)
	}
	if resp.IsError() {
		return p.mintFailed(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String()), address, amount)
	}

	p.logger.Info(ctx, "minted tokens on local network", "address", address, "amount", amount)
	return nil
}

// BuildClassification derives the network classification. Configuration
// decides local-dev vs production; the probe only refines miningRequired.
// An unreachable local endpoint is absorbed: the classification stays
// local-dev with miningRequired false, and the caller surfaces connectivity
// problems on the first real operation instead.
func (p *Prober) BuildClassification(ctx context.Context) domain.NetworkClassification {
	if !p.cfg.IsLocalDev() {
		return domain.NetworkClassification{}
	}

	classification := domain.NetworkClassification{IsLocalDev: true}

	info, err := p.FetchNetworkInfo(ctx)
	if err != nil {
		p.logger.Debug(ctx, "classification probe failed, assuming no pending queue", "error", err)
		return classification
	}

	classification.MiningRequired = info.MiningRequired()
	return classification
}

func (p *Prober) notRunning(cause error, operation string) *apperror.AppError {
	return apperror.New(apperror.CodeLocalNetworkNotRunning,
		apperror.WithOperation(operation),
		apperror.WithCause(cause),
		apperror.WithFields(p.endpointFields()),
		apperror.WithField("endpoint", p.cfg.BaseURL()+infoEndpoint),
		apperror.WithTroubleshooting(
			"Start the local network: npx arlocal",
			fmt.Sprintf("Verify it responds: curl %s/info", p.cfg.BaseURL()),
			"Or switch the gateway settings to production",
		))
}

func (p *Prober) mineFailed(cause error) *apperror.AppError {
	return apperror.New(apperror.CodeMiningRequired,
		apperror.WithOperation("mine"),
		apperror.WithCause(cause),
		apperror.WithFields(p.endpointFields()),
		apperror.WithField("reason", "mine_failed"),
		apperror.WithTroubleshooting(
			"Confirm the local network is running and reachable",
			"Check the pending queue with GET /info (queue_length)",
			"Trigger block production with GET /mine",
		))
}

func (p *Prober) mintFailed(cause error, address, amount string) *apperror.AppError {
	return apperror.New(apperror.CodeMintFailed,
		apperror.WithOperation("mint"),
		apperror.WithCause(cause),
		apperror.WithFields(p.endpointFields()),
		apperror.WithField("address", address),
		apperror.WithField("amount", amount),
		apperror.WithField("addressFormat", apperror.AddressFormat),
		apperror.WithField("amountFormat", apperror.AmountFormat))
}

// validMintAmount accepts nonzero positive integer winston strings.
func validMintAmount(amount string) bool {
	_, err := winston.ParsePositive(amount)
	return err == nil
}
