package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/apperror"
	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/winston"
)

const (
	defaultSearchLimit  = 10
	defaultWaitTimeout  = 60 * time.Second
	defaultPollInterval = time.Second
)

// WaitOptions tunes WaitForConfirmation.
type WaitOptions struct {
	Timeout      time.Duration // defaults to 60s
	PollInterval time.Duration // defaults to 1s
	AutoMine     bool          // mine a block per poll while pending (local dev only)
}

// PermawebService is the mode-aware facade over the ledger client and the
// local development node. Construction never touches the network; Initialize
// performs the startup probe and is where an unreachable local network
// surfaces.
type PermawebService struct {
	cfg    *config.ConnectionConfig
	ledger LedgerClient
	local  LocalNode
	logger logger.LoggerInterface

	mu             sync.RWMutex
	initialized    bool
	wallet         *domain.Wallet
	classification domain.NetworkClassification
	state          domain.LocalNetworkState
}

// NewPermawebService creates the service. Invalid wallet keys and unreachable
// networks are tolerated here and reported by Initialize.
func NewPermawebService(cfg *config.ConnectionConfig, ledger LedgerClient, local LocalNode, log logger.LoggerInterface) *PermawebService {
	return &PermawebService{
		cfg:    cfg,
		ledger: ledger,
		local:  local,
		logger: log,
	}
}

// Initialize probes the configured network and loads the configured wallet.
// Against a local development configuration an unreachable node fails with
// LOCAL_NETWORK_NOT_RUNNING; production configurations initialize without any
// network traffic.
func (s *PermawebService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if s.cfg.HasWallet() {
		w, err := domain.ParseWallet(s.cfg.WalletKey)
		if err != nil {
			return apperror.New(apperror.CodeInvalidWalletKey,
				apperror.WithOperation("initialize"),
				apperror.WithCause(err))
		}
		s.wallet = w
	}

	classification := domain.NetworkClassification{IsLocalDev: s.cfg.IsLocalDev()}

	if s.cfg.IsLocalDev() {
		info, err := s.local.FetchNetworkInfo(ctx)
		if err != nil {
			return err
		}
		s.state = domain.StateFromInfo(info)
		classification.MiningRequired = info.MiningRequired()
	}

	s.classification = classification
	s.initialized = true

	s.logger.Info(ctx, "permaweb service initialized",
		"gateway", s.cfg.BaseURL(),
		"localDev", classification.IsLocalDev,
		"hasWallet", s.wallet != nil)
	return nil
}

// Stop shuts the service down. Operations after Stop fail with
// SERVICE_NOT_INITIALIZED until Initialize runs again.
func (s *PermawebService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.logger.Info(ctx, "permaweb service stopped")
	return nil
}

// IsLocalDev reports whether the configuration points at a local development
// network. Pure config derivation, valid before Initialize.
func (s *PermawebService) IsLocalDev() bool {
	return s.cfg.IsLocalDev()
}

// Classification returns the network classification captured at Initialize.
func (s *PermawebService) Classification() domain.NetworkClassification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classification
}

// LocalState returns the last observed local network state.
func (s *PermawebService) LocalState() domain.LocalNetworkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CreateWallet generates a fresh wallet and makes it the active one.
func (s *PermawebService) CreateWallet(ctx context.Context) (*domain.Wallet, error) {
	if err := s.ensureInitialized("createWallet"); err != nil {
		return nil, err
	}

	w, err := domain.GenerateWallet()
	if err != nil {
		return nil, s.classify(err, "createWallet")
	}

	s.mu.Lock()
	s.wallet = w
	s.mu.Unlock()

	s.logger.Info(ctx, "wallet created", "address", w.Address())
	return w, nil
}

// LoadWallet parses a JWK key and makes it the active wallet.
func (s *PermawebService) LoadWallet(ctx context.Context, raw string) (*domain.Wallet, error) {
	if err := s.ensureInitialized("loadWallet"); err != nil {
		return nil, err
	}

	w, err := domain.ParseWallet(raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidWalletKey,
			apperror.WithOperation("loadWallet"),
			apperror.WithCause(err))
	}

	s.mu.Lock()
	s.wallet = w
	s.mu.Unlock()

	s.logger.Info(ctx, "wallet loaded", "address", w.Address())
	return w, nil
}

// Address returns the active wallet address.
func (s *PermawebService) Address() (string, error) {
	if err := s.ensureInitialized("address"); err != nil {
		return "", err
	}
	w, err := s.currentWallet("address")
	if err != nil {
		return "", err
	}
	return w.Address(), nil
}

// GetBalance fetches the winston balance of address, or of the active wallet
// when address is empty.
func (s *PermawebService) GetBalance(ctx context.Context, address string) (winston.Amount, error) {
	if err := s.ensureInitialized("getBalance"); err != nil {
		return winston.Zero(), err
	}
	if err := s.ensureLocalAvailable(ctx, "getBalance"); err != nil {
		return winston.Zero(), err
	}

	if address == "" {
		w, err := s.currentWallet("getBalance")
		if err != nil {
			return winston.Zero(), err
		}
		address = w.Address()
	} else if !domain.ValidAddress(address) {
		return winston.Zero(), apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("getBalance"),
			apperror.WithMessage(fmt.Sprintf("invalid address %q", address)),
			apperror.WithField("addressFormat", apperror.AddressFormat))
	}

	balance, err := s.ledger.GetBalance(ctx, address)
	if err != nil {
		return winston.Zero(), s.classify(err, "getBalance")
	}
	return balance, nil
}

// EstimatePrice returns the upload fee in winston for numBytes of data.
func (s *PermawebService) EstimatePrice(ctx context.Context, numBytes int64) (winston.Amount, error) {
	if err := s.ensureInitialized("estimatePrice"); err != nil {
		return winston.Zero(), err
	}
	if err := s.ensureLocalAvailable(ctx, "estimatePrice"); err != nil {
		return winston.Zero(), err
	}

	if numBytes < 0 {
		return winston.Zero(), apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("estimatePrice"),
			apperror.WithMessage(fmt.Sprintf("byte count must not be negative, got %d", numBytes)))
	}

	price, err := s.ledger.GetPrice(ctx, numBytes, "")
	if err != nil {
		return winston.Zero(), s.classify(err, "estimatePrice")
	}
	return price, nil
}

// UploadData submits a data transaction with the given tags.
func (s *PermawebService) UploadData(ctx context.Context, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error) {
	if err := s.ensureInitialized("uploadData"); err != nil {
		return nil, err
	}
	if err := s.ensureLocalAvailable(ctx, "uploadData"); err != nil {
		return nil, err
	}
	w, err := s.currentWallet("uploadData")
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("uploadData"),
			apperror.WithMessage("data must not be empty"))
	}
	for _, tag := range tags {
		if tag.Name == "" {
			return nil, apperror.New(apperror.CodeInvalidParameters,
				apperror.WithOperation("uploadData"),
				apperror.WithMessage("tag names must not be empty"))
		}
	}

	receipt, err := s.ledger.UploadData(ctx, w, data, tags)
	if err != nil {
		return nil, s.classify(err, "uploadData")
	}

	s.refreshLocalState(ctx)
	return receipt, nil
}

// RetrieveData fetches the data payload of a confirmed transaction. A
// pending transaction maps to MINING_REQUIRED in every mode, because mining
// a block is what will make the data retrievable; on a local development
// network the error additionally carries the observed queue length.
func (s *PermawebService) RetrieveData(ctx context.Context, id string) ([]byte, error) {
	if err := s.ensureInitialized("retrieveData"); err != nil {
		return nil, err
	}
	if err := s.ensureLocalAvailable(ctx, "retrieveData"); err != nil {
		return nil, err
	}
	if err := s.validateID(id, "retrieveData"); err != nil {
		return nil, err
	}

	data, pending, err := s.ledger.GetData(ctx, id)
	if err != nil {
		return nil, s.classify(err, "retrieveData")
	}

	if pending {
		opts := []apperror.Option{
			apperror.WithOperation("retrieveData"),
			apperror.WithField("reason", "confirmation_pending"),
			apperror.WithField("id", id),
		}
		if s.cfg.IsLocalDev() {
			s.refreshLocalState(ctx)
			opts = append(opts,
				apperror.WithField("pendingCount", s.LocalState().QueueLength),
				apperror.WithTroubleshooting(
					"Trigger block production with GET /mine",
					"Then retry the retrieval",
				))
		} else {
			opts = append(opts,
				apperror.WithTroubleshooting(
					"Wait for the network to mine the transaction into a block",
					"Then retry the retrieval",
				))
		}
		return nil, apperror.New(apperror.CodeMiningRequired, opts...)
	}

	return data, nil
}

// GetTransactionStatus looks up the confirmation status of a transaction.
// Unknown transactions return a not_found status rather than an error.
func (s *PermawebService) GetTransactionStatus(ctx context.Context, id string) (*domain.TransactionStatus, error) {
	if err := s.ensureInitialized("getTransactionStatus"); err != nil {
		return nil, err
	}
	if err := s.ensureLocalAvailable(ctx, "getTransactionStatus"); err != nil {
		return nil, err
	}
	if err := s.validateID(id, "getTransactionStatus"); err != nil {
		return nil, err
	}

	status, err := s.ledger.GetStatus(ctx, id)
	if err != nil {
		return nil, s.classify(err, "getTransactionStatus")
	}
	return status, nil
}

// Transfer sends quantity winston to target.
func (s *PermawebService) Transfer(ctx context.Context, target, quantity string) (*domain.TransferReceipt, error) {
	if err := s.ensureInitialized("transfer"); err != nil {
		return nil, err
	}
	if err := s.ensureLocalAvailable(ctx, "transfer"); err != nil {
		return nil, err
	}
	w, err := s.currentWallet("transfer")
	if err != nil {
		return nil, err
	}

	if !domain.ValidAddress(target) {
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("transfer"),
			apperror.WithMessage(fmt.Sprintf("invalid target address %q", target)),
			apperror.WithField("addressFormat", apperror.AddressFormat))
	}
	if _, err := winston.ParsePositive(quantity); err != nil {
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("transfer"),
			apperror.WithMessage(fmt.Sprintf("invalid quantity %q", quantity)),
			apperror.WithField("amountFormat", apperror.AmountFormat))
	}

	receipt, err := s.ledger.Transfer(ctx, w, target, quantity)
	if err != nil {
		return nil, s.classify(err, "transfer")
	}

	s.refreshLocalState(ctx)
	return receipt, nil
}

// SearchByTags finds transactions matching every supplied tag.
func (s *PermawebService) SearchByTags(ctx context.Context, tags []domain.Tag, limit int) ([]domain.SearchResult, error) {
	if err := s.ensureInitialized("searchByTags"); err != nil {
		return nil, err
	}
	if err := s.ensureLocalAvailable(ctx, "searchByTags"); err != nil {
		return nil, err
	}

	if len(tags) == 0 {
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("searchByTags"),
			apperror.WithMessage("at least one tag is required"))
	}
	for _, tag := range tags {
		if tag.Name == "" {
			return nil, apperror.New(apperror.CodeInvalidParameters,
				apperror.WithOperation("searchByTags"),
				apperror.WithMessage("tag names must not be empty"))
		}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ledger.SearchByTags(ctx, tags, limit)
	if err != nil {
		return nil, s.classify(err, "searchByTags")
	}
	return results, nil
}

// GetPendingCount returns the local node's pending transaction queue length.
// Local development only.
func (s *PermawebService) GetPendingCount(ctx context.Context) (int, error) {
	if err := s.ensureInitialized("getPendingCount"); err != nil {
		return 0, err
	}
	if err := s.localOnly("getPendingCount"); err != nil {
		return 0, err
	}

	info, err := s.local.FetchNetworkInfo(ctx)
	if err != nil {
		return 0, s.classify(err, "getPendingCount")
	}

	s.storeState(domain.StateFromInfo(info))
	return info.QueueLength, nil
}

// MineBlocks triggers production of blockCount blocks on the local node. A
// node with an empty pending queue is left alone. Local development only.
func (s *PermawebService) MineBlocks(ctx context.Context, blockCount int) error {
	if err := s.ensureInitialized("mineBlocks"); err != nil {
		return err
	}
	if err := s.localOnly("mineBlocks"); err != nil {
		return err
	}
	if blockCount < 1 {
		return apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("mineBlocks"),
			apperror.WithMessage(fmt.Sprintf("block count must be a positive integer, got %d", blockCount)),
			apperror.WithField("blockCount", blockCount))
	}

	info, err := s.local.FetchNetworkInfo(ctx)
	if err != nil {
		return s.classify(err, "mineBlocks")
	}
	if info.QueueLength == 0 {
		s.storeState(domain.StateFromInfo(info))
		s.logger.Debug(ctx, "pending queue is empty, nothing to mine")
		return nil
	}

	if err := s.local.Mine(ctx, blockCount); err != nil {
		return s.classify(err, "mineBlocks")
	}

	s.refreshLocalState(ctx)
	return nil
}

// MintTokens credits amount winston to address on the local node; an empty
// address mints to the active wallet. Local development only.
func (s *PermawebService) MintTokens(ctx context.Context, address, amount string) error {
	if err := s.ensureInitialized("mintTokens"); err != nil {
		return err
	}
	if err := s.localOnly("mintTokens"); err != nil {
		return err
	}

	if address == "" {
		w, err := s.currentWallet("mintTokens")
		if err != nil {
			return err
		}
		address = w.Address()
	}

	if err := s.local.Mint(ctx, address, amount); err != nil {
		return s.classify(err, "mintTokens")
	}

	s.refreshLocalState(ctx)
	return nil
}

// WaitForConfirmation polls the transaction status until it confirms or the
// timeout expires. With AutoMine set and a local development network, each
// pending poll checks the pending queue and mines a single block when it is
// nonempty, so tests and scripts do not have to mine by hand. An unreachable
// local network aborts the wait immediately.
func (s *PermawebService) WaitForConfirmation(ctx context.Context, id string, opts WaitOptions) (*domain.TransactionStatus, error) {
	if err := s.ensureInitialized("waitForConfirmation"); err != nil {
		return nil, err
	}
	if err := s.validateID(id, "waitForConfirmation"); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := s.ledger.GetStatus(ctx, id)
		if err != nil {
			classified := s.classify(err, "waitForConfirmation")
			if classified.Code == apperror.CodeLocalNetworkNotRunning {
				return nil, classified
			}
			s.logger.Warn(ctx, "status poll failed, retrying", "id", id, "error", classified)
		} else if status.State == domain.StatusConfirmed {
			s.refreshLocalState(ctx)
			return status, nil
		} else if status.State == domain.StatusPending && opts.AutoMine && s.cfg.IsLocalDev() {
			s.autoMine(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, s.classify(ctx.Err(), "waitForConfirmation")
		case <-deadline.C:
			return nil, s.timeoutError(ctx, id)
		case <-ticker.C:
		}
	}
}

// timeoutError builds the error for an expired confirmation wait. On a local
// network with a pending queue the timeout means nobody mined a block, so it
// reports MINING_REQUIRED with the queue length.
func (s *PermawebService) timeoutError(ctx context.Context, id string) *apperror.AppError {
	if s.cfg.IsLocalDev() {
		if info, err := s.local.FetchNetworkInfo(ctx); err == nil {
			s.storeState(domain.StateFromInfo(info))
			if info.QueueLength > 0 {
				return apperror.New(apperror.CodeMiningRequired,
					apperror.WithOperation("waitForConfirmation"),
					apperror.WithField("reason", "confirmation_pending"),
					apperror.WithField("id", id),
					apperror.WithField("pendingCount", info.QueueLength),
					apperror.WithTroubleshooting(
						"Trigger block production with GET /mine",
						"Then retry the wait",
					))
			}
		}
	}

	return apperror.New(apperror.CodeTransactionFailed,
		apperror.WithOperation("waitForConfirmation"),
		apperror.WithMessage(fmt.Sprintf("transaction %s did not confirm before the timeout", id)),
		apperror.WithField("id", id),
		apperror.WithRetryable(true))
}

// autoMine drives one block of production during a confirmation wait, but
// only when the node actually has transactions queued. Failures are logged
// and swallowed; the next poll observes whatever the node did.
func (s *PermawebService) autoMine(ctx context.Context) {
	info, err := s.local.FetchNetworkInfo(ctx)
	if err != nil {
		s.logger.Debug(ctx, "auto-mine skipped, local node unreachable", "error", err)
		return
	}
	s.storeState(domain.StateFromInfo(info))
	if info.QueueLength == 0 {
		return
	}

	if err := s.local.Mine(ctx, 1); err != nil {
		s.logger.Debug(ctx, "auto-mine failed", "error", err)
	}
}

func (s *PermawebService) ensureInitialized(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return apperror.New(apperror.CodeServiceNotInitialized,
			apperror.WithOperation(op))
	}
	return nil
}

func (s *PermawebService) currentWallet(op string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wallet == nil {
		return nil, apperror.New(apperror.CodeWalletNotConnected,
			apperror.WithOperation(op))
	}
	return s.wallet, nil
}

// ensureLocalAvailable re-checks the local node before an operation does any
// other work, so a node that went away after Initialize fails up front with
// LOCAL_NETWORK_NOT_RUNNING instead of a confusing downstream error. A
// reachable node refreshes the observed state as a side effect. Production
// configurations skip the check.
func (s *PermawebService) ensureLocalAvailable(ctx context.Context, op string) error {
	if !s.cfg.IsLocalDev() {
		return nil
	}

	info, err := s.local.FetchNetworkInfo(ctx)
	if err != nil {
		return s.classify(err, op)
	}
	s.storeState(domain.StateFromInfo(info))
	return nil
}

// localOnly rejects local-dev-exclusive operations against a production
// configuration.
func (s *PermawebService) localOnly(op string) error {
	if s.cfg.IsLocalDev() {
		return nil
	}
	return apperror.New(apperror.CodeInvalidConfig,
		apperror.WithOperation(op),
		apperror.WithMessage(fmt.Sprintf("%s is only available against the local development network", op)),
		apperror.WithField("mode", "mainnet"),
		apperror.WithField("host", s.cfg.Host))
}

func (s *PermawebService) validateID(id, op string) error {
	if domain.ValidTransactionID(id) {
		return nil
	}
	return apperror.New(apperror.CodeInvalidParameters,
		apperror.WithOperation(op),
		apperror.WithMessage(fmt.Sprintf("invalid transaction id %q", id)),
		apperror.WithField("idFormat", apperror.AddressFormat))
}

// classify maps a raw error onto the taxonomy with endpoint context attached.
func (s *PermawebService) classify(err error, op string) *apperror.AppError {
	return apperror.Classify(err, op, map[string]any{
		"host":       s.cfg.Host,
		"port":       s.cfg.Port,
		"isLocalDev": s.cfg.IsLocalDev(),
	})
}

// refreshLocalState re-reads the local node state after mutating operations.
// Best effort: failures are logged and swallowed.
func (s *PermawebService) refreshLocalState(ctx context.Context) {
	if !s.cfg.IsLocalDev() {
		return
	}

	info, err := s.local.FetchNetworkInfo(ctx)
	if err != nil {
		s.logger.Debug(ctx, "local state refresh failed", "error", err)
		return
	}
	s.storeState(domain.StateFromInfo(info))
}

func (s *PermawebService) storeState(state domain.LocalNetworkState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.classification.MiningRequired = state.MiningRequired
}
