package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/apperror"
	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/winston"
)

const validID = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJK-_1234"

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (n nopLogger) With(args ...any) logger.LoggerInterface          { return n }

// fakeLedger implements LedgerClient with overridable behavior per call.
type fakeLedger struct {
	priceFn    func(numBytes int64, target string) (winston.Amount, error)
	balanceFn  func(address string) (winston.Amount, error)
	uploadFn   func(w *domain.Wallet, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error)
	transferFn func(w *domain.Wallet, target, quantity string) (*domain.TransferReceipt, error)
	statusFn   func(id string) (*domain.TransactionStatus, error)
	dataFn     func(id string) ([]byte, bool, error)
	searchFn   func(tags []domain.Tag, limit int) ([]domain.SearchResult, error)

	calls map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{calls: make(map[string]int)}
}

func (f *fakeLedger) GetPrice(ctx context.Context, numBytes int64, target string) (winston.Amount, error) {
	f.calls["GetPrice"]++
	if f.priceFn != nil {
		return f.priceFn(numBytes, target)
	}
	return winston.Zero(), nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, address string) (winston.Amount, error) {
	f.calls["GetBalance"]++
	if f.balanceFn != nil {
		return f.balanceFn(address)
	}
	return winston.Zero(), nil
}

func (f *fakeLedger) UploadData(ctx context.Context, w *domain.Wallet, data []byte, tags []domain.Tag) (*domain.UploadReceipt, error) {
	f.calls["UploadData"]++
	if f.uploadFn != nil {
		return f.uploadFn(w, data, tags)
	}
	return &domain.UploadReceipt{ID: validID, DataSize: int64(len(data))}, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, w *domain.Wallet, target, quantity string) (*domain.TransferReceipt, error) {
	f.calls["Transfer"]++
	if f.transferFn != nil {
		return f.transferFn(w, target, quantity)
	}
	return &domain.TransferReceipt{ID: validID, Target: target, Quantity: quantity}, nil
}

func (f *fakeLedger) GetStatus(ctx context.Context, id string) (*domain.TransactionStatus, error) {
	f.calls["GetStatus"]++
	if f.statusFn != nil {
		return f.statusFn(id)
	}
	return &domain.TransactionStatus{ID: id, State: domain.StatusPending}, nil
}

func (f *fakeLedger) GetData(ctx context.Context, id string) ([]byte, bool, error) {
	f.calls["GetData"]++
	if f.dataFn != nil {
		return f.dataFn(id)
	}
	return []byte("data"), false, nil
}

func (f *fakeLedger) SearchByTags(ctx context.Context, tags []domain.Tag, limit int) ([]domain.SearchResult, error) {
	f.calls["SearchByTags"]++
	if f.searchFn != nil {
		return f.searchFn(tags, limit)
	}
	return nil, nil
}

// fakeLocal implements LocalNode.
type fakeLocal struct {
	infoFn func() (*domain.NetworkInfo, error)
	mineFn func(blockCount int) error
	mintFn func(address, amount string) error

	calls map[string]int
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{calls: make(map[string]int)}
}

func (f *fakeLocal) info() (*domain.NetworkInfo, error) {
	if f.infoFn != nil {
		return f.infoFn()
	}
	return &domain.NetworkInfo{Network: "arlocal.N.1", Height: 1}, nil
}

func (f *fakeLocal) ProbeAvailability(ctx context.Context) bool {
	f.calls["ProbeAvailability"]++
	_, err := f.info()
	return err == nil
}

func (f *fakeLocal) FetchNetworkInfo(ctx context.Context) (*domain.NetworkInfo, error) {
	f.calls["FetchNetworkInfo"]++
	return f.info()
}

func (f *fakeLocal) Mine(ctx context.Context, blockCount int) error {
	f.calls["Mine"]++
	if f.mineFn != nil {
		return f.mineFn(blockCount)
	}
	return nil
}

func (f *fakeLocal) Mint(ctx context.Context, address, amount string) error {
	f.calls["Mint"]++
	if f.mintFn != nil {
		return f.mintFn(address, amount)
	}
	return nil
}

func (f *fakeLocal) BuildClassification(ctx context.Context) domain.NetworkClassification {
	f.calls["BuildClassification"]++
	info, err := f.info()
	if err != nil {
		return domain.NetworkClassification{IsLocalDev: true}
	}
	return domain.NetworkClassification{IsLocalDev: true, MiningRequired: info.MiningRequired()}
}

func localCfg() *config.ConnectionConfig {
	return &config.ConnectionConfig{Host: "localhost", Protocol: "http", Port: 1984, Timeout: time.Second}
}

func prodCfg() *config.ConnectionConfig {
	return &config.ConnectionConfig{Host: "arweave.net", Protocol: "https", Port: 443, Timeout: time.Second}
}

// testJWK builds a parseable 2048-bit JWK document.
func testJWK(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	enc := func(b *big.Int) string { return base64.RawURLEncoding.EncodeToString(b.Bytes()) }
	jwk := map[string]string{
		"kty": "RSA",
		"n":   enc(key.PublicKey.N),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		"d":   enc(key.D),
		"p":   enc(key.Primes[0]),
		"q":   enc(key.Primes[1]),
		"dp":  enc(key.Precomputed.Dp),
		"dq":  enc(key.Precomputed.Dq),
		"qi":  enc(key.Precomputed.Qinv),
	}
	raw, err := json.Marshal(jwk)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(raw)
}

func newService(t *testing.T, cfg *config.ConnectionConfig, ledger *fakeLedger, local *fakeLocal) *PermawebService {
	t.Helper()
	return NewPermawebService(cfg, ledger, local, nopLogger{})
}

func initService(t *testing.T, cfg *config.ConnectionConfig, ledger *fakeLedger, local *fakeLocal) *PermawebService {
	t.Helper()
	s := newService(t, cfg, ledger, local)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return s
}

func withWallet(t *testing.T, s *PermawebService) *PermawebService {
	t.Helper()
	if _, err := s.LoadWallet(context.Background(), testJWK(t)); err != nil {
		t.Fatalf("LoadWallet failed: %v", err)
	}
	return s
}

func wantCode(t *testing.T, err error, code apperror.Code) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil error", code)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected %s, got %s (%v)", code, appErr.Code, err)
	}
	return appErr
}

func TestOperationsRequireInitialize(t *testing.T) {
	s := newService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	ctx := context.Background()

	if _, err := s.GetBalance(ctx, validID); apperror.GetCode(err) != apperror.CodeServiceNotInitialized {
		t.Errorf("GetBalance before Initialize: got %v", err)
	}
	if _, err := s.UploadData(ctx, []byte("x"), nil); apperror.GetCode(err) != apperror.CodeServiceNotInitialized {
		t.Errorf("UploadData before Initialize: got %v", err)
	}
	if err := s.MineBlocks(ctx, 1); apperror.GetCode(err) != apperror.CodeServiceNotInitialized {
		t.Errorf("MineBlocks before Initialize: got %v", err)
	}
}

func TestInitialize_Production_NoLocalTraffic(t *testing.T) {
	local := newFakeLocal()
	s := initService(t, prodCfg(), newFakeLedger(), local)

	if got := s.Classification(); got.IsLocalDev || got.MiningRequired {
		t.Errorf("production classification must be {false false}, got %+v", got)
	}
	if local.calls["FetchNetworkInfo"] != 0 {
		t.Error("production initialize must not touch the local node")
	}
}

func TestInitialize_LocalDev_CapturesState(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 2, Height: 7}, nil
	}

	s := initService(t, localCfg(), newFakeLedger(), local)

	if got := s.Classification(); !got.IsLocalDev || !got.MiningRequired {
		t.Errorf("unexpected classification: %+v", got)
	}
	state := s.LocalState()
	if !state.Available || state.QueueLength != 2 || state.Height != 7 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestInitialize_LocalDev_Unreachable(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return nil, apperror.New(apperror.CodeLocalNetworkNotRunning)
	}

	s := newService(t, localCfg(), newFakeLedger(), local)
	err := s.Initialize(context.Background())
	wantCode(t, err, apperror.CodeLocalNetworkNotRunning)

	// The failure leaves the service uninitialized.
	if _, balErr := s.GetBalance(context.Background(), validID); apperror.GetCode(balErr) != apperror.CodeServiceNotInitialized {
		t.Error("a failed Initialize must leave the service uninitialized")
	}
}

func TestInitialize_BadWalletKey(t *testing.T) {
	cfg := prodCfg()
	cfg.WalletKey = `{"kty":"RSA","n":"AQ","e":"AQ","d":"AQ","p":"AQ","q":"AQ","dp":"AQ","dq":"AQ","qi":"AQ"}`

	s := newService(t, cfg, newFakeLedger(), newFakeLocal())
	wantCode(t, s.Initialize(context.Background()), apperror.CodeInvalidWalletKey)
}

func TestInitialize_Idempotent(t *testing.T) {
	local := newFakeLocal()
	s := initService(t, localCfg(), newFakeLedger(), local)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if local.calls["FetchNetworkInfo"] != 1 {
		t.Errorf("second Initialize must be a no-op, got %d probes", local.calls["FetchNetworkInfo"])
	}
}

func TestStop_RequiresReinitialize(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := s.GetBalance(context.Background(), validID); apperror.GetCode(err) != apperror.CodeServiceNotInitialized {
		t.Error("operations after Stop must fail with SERVICE_NOT_INITIALIZED")
	}
}

func TestLoadWallet(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())

	w, err := s.LoadWallet(context.Background(), testJWK(t))
	if err != nil {
		t.Fatalf("LoadWallet failed: %v", err)
	}

	addr, err := s.Address()
	if err != nil {
		t.Fatalf("Address failed: %v", err)
	}
	if addr != w.Address() {
		t.Error("Address must return the loaded wallet's address")
	}
}

func TestLoadWallet_Invalid(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	_, err := s.LoadWallet(context.Background(), "not a key")
	wantCode(t, err, apperror.CodeInvalidWalletKey)
}

func TestAddress_NoWallet(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	_, err := s.Address()
	wantCode(t, err, apperror.CodeWalletNotConnected)
}

func TestGetBalance(t *testing.T) {
	ledger := newFakeLedger()
	var gotAddr string
	ledger.balanceFn = func(address string) (winston.Amount, error) {
		gotAddr = address
		return winston.Parse("42")
	}

	s := withWallet(t, initService(t, prodCfg(), ledger, newFakeLocal()))

	balance, err := s.GetBalance(context.Background(), "")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance.String() != "42" {
		t.Errorf("unexpected balance %s", balance)
	}

	addr, _ := s.Address()
	if gotAddr != addr {
		t.Error("empty address must resolve to the active wallet")
	}
}

func TestGetBalance_NoWalletNoAddress(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	_, err := s.GetBalance(context.Background(), "")
	wantCode(t, err, apperror.CodeWalletNotConnected)
}

func TestGetBalance_InvalidAddress(t *testing.T) {
	ledger := newFakeLedger()
	s := initService(t, prodCfg(), ledger, newFakeLocal())

	_, err := s.GetBalance(context.Background(), "short")
	wantCode(t, err, apperror.CodeInvalidParameters)
	if ledger.calls["GetBalance"] != 0 {
		t.Error("invalid address must not reach the ledger")
	}
}

func TestEstimatePrice_Negative(t *testing.T) {
	ledger := newFakeLedger()
	s := initService(t, prodCfg(), ledger, newFakeLocal())

	_, err := s.EstimatePrice(context.Background(), -1)
	wantCode(t, err, apperror.CodeInvalidParameters)
	if ledger.calls["GetPrice"] != 0 {
		t.Error("invalid byte count must not reach the ledger")
	}
}

func TestUploadData(t *testing.T) {
	ledger := newFakeLedger()
	s := withWallet(t, initService(t, prodCfg(), ledger, newFakeLocal()))

	receipt, err := s.UploadData(context.Background(), []byte("hello"), []domain.Tag{{Name: "App-Name", Value: "test"}})
	if err != nil {
		t.Fatalf("UploadData failed: %v", err)
	}
	if receipt.ID != validID {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
}

func TestUploadData_Guards(t *testing.T) {
	ledger := newFakeLedger()
	s := initService(t, prodCfg(), ledger, newFakeLocal())
	ctx := context.Background()

	_, err := s.UploadData(ctx, []byte("x"), nil)
	wantCode(t, err, apperror.CodeWalletNotConnected)

	withWallet(t, s)

	_, err = s.UploadData(ctx, nil, nil)
	wantCode(t, err, apperror.CodeInvalidParameters)

	_, err = s.UploadData(ctx, []byte("x"), []domain.Tag{{Name: "", Value: "v"}})
	wantCode(t, err, apperror.CodeInvalidParameters)

	if ledger.calls["UploadData"] != 0 {
		t.Error("guard failures must not reach the ledger")
	}
}

func TestRetrieveData_PendingLocal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.dataFn = func(id string) ([]byte, bool, error) { return nil, true, nil }

	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 3}, nil
	}

	s := initService(t, localCfg(), ledger, local)
	_, err := s.RetrieveData(context.Background(), validID)

	appErr := wantCode(t, err, apperror.CodeMiningRequired)
	if appErr.Field("reason") != "confirmation_pending" {
		t.Errorf("expected reason confirmation_pending, got %v", appErr.Field("reason"))
	}
	if appErr.Field("pendingCount") != 3 {
		t.Errorf("expected pendingCount 3, got %v", appErr.Field("pendingCount"))
	}
}

func TestRetrieveData_PendingProduction(t *testing.T) {
	ledger := newFakeLedger()
	ledger.dataFn = func(id string) ([]byte, bool, error) { return nil, true, nil }

	local := newFakeLocal()
	s := initService(t, prodCfg(), ledger, local)
	_, err := s.RetrieveData(context.Background(), validID)

	appErr := wantCode(t, err, apperror.CodeMiningRequired)
	if appErr.Field("reason") != "confirmation_pending" {
		t.Errorf("expected reason confirmation_pending, got %v", appErr.Field("reason"))
	}
	if appErr.Field("pendingCount") != nil {
		t.Error("production retrieval must not report a local queue length")
	}
	if local.calls["FetchNetworkInfo"] != 0 {
		t.Error("production retrieval must not touch the local node")
	}
}

func TestRetrieveData_NotFoundPassesThrough(t *testing.T) {
	ledger := newFakeLedger()
	ledger.dataFn = func(id string) ([]byte, bool, error) {
		return nil, false, apperror.New(apperror.CodeDataNotFound)
	}

	s := initService(t, prodCfg(), ledger, newFakeLocal())
	_, err := s.RetrieveData(context.Background(), validID)
	wantCode(t, err, apperror.CodeDataNotFound)
}

func TestRetrieveData_InvalidID(t *testing.T) {
	ledger := newFakeLedger()
	s := initService(t, prodCfg(), ledger, newFakeLocal())

	for _, id := range []string{"", "short", validID + "x"} {
		_, err := s.RetrieveData(context.Background(), id)
		wantCode(t, err, apperror.CodeInvalidParameters)
	}
	if ledger.calls["GetData"] != 0 {
		t.Error("invalid ids must not reach the ledger")
	}
}

func TestTransfer_Guards(t *testing.T) {
	ledger := newFakeLedger()
	s := withWallet(t, initService(t, prodCfg(), ledger, newFakeLocal()))
	ctx := context.Background()

	_, err := s.Transfer(ctx, "short", "100")
	wantCode(t, err, apperror.CodeInvalidParameters)

	for _, quantity := range []string{"0", "1.5", "-1", "abc", ""} {
		_, err := s.Transfer(ctx, validID, quantity)
		wantCode(t, err, apperror.CodeInvalidParameters)
	}

	if ledger.calls["Transfer"] != 0 {
		t.Error("guard failures must not reach the ledger")
	}

	if _, err := s.Transfer(ctx, validID, "100"); err != nil {
		t.Fatalf("valid transfer failed: %v", err)
	}
}

func TestSearchByTags(t *testing.T) {
	ledger := newFakeLedger()
	var gotLimit int
	ledger.searchFn = func(tags []domain.Tag, limit int) ([]domain.SearchResult, error) {
		gotLimit = limit
		return []domain.SearchResult{{ID: validID}}, nil
	}

	s := initService(t, prodCfg(), ledger, newFakeLocal())
	ctx := context.Background()

	_, err := s.SearchByTags(ctx, nil, 0)
	wantCode(t, err, apperror.CodeInvalidParameters)

	results, err := s.SearchByTags(ctx, []domain.Tag{{Name: "App-Name", Value: "x"}}, 0)
	if err != nil {
		t.Fatalf("SearchByTags failed: %v", err)
	}
	if len(results) != 1 || gotLimit != defaultSearchLimit {
		t.Errorf("unexpected results/limit: %d/%d", len(results), gotLimit)
	}
}

func TestGetPendingCount_ProductionGuard(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())

	_, err := s.GetPendingCount(context.Background())
	appErr := wantCode(t, err, apperror.CodeInvalidConfig)
	if appErr.Field("mode") != "mainnet" {
		t.Errorf("expected mode mainnet, got %v", appErr.Field("mode"))
	}
}

func TestGetPendingCount_Local(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 5, Height: 3}, nil
	}

	s := initService(t, localCfg(), newFakeLedger(), local)
	count, err := s.GetPendingCount(context.Background())
	if err != nil {
		t.Fatalf("GetPendingCount failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 pending, got %d", count)
	}
	if state := s.LocalState(); state.QueueLength != 5 {
		t.Error("pending count must refresh the observed state")
	}
}

func TestMineBlocks(t *testing.T) {
	local := newFakeLocal()
	queue := 2
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: queue}, nil
	}
	var minedCount int
	local.mineFn = func(blockCount int) error {
		minedCount = blockCount
		queue = 0
		return nil
	}

	s := initService(t, localCfg(), newFakeLedger(), local)

	if err := s.MineBlocks(context.Background(), 2); err != nil {
		t.Fatalf("MineBlocks failed: %v", err)
	}
	if minedCount != 2 {
		t.Errorf("expected 2 blocks mined, got %d", minedCount)
	}
	if s.LocalState().MiningRequired {
		t.Error("state refresh after mining must clear miningRequired")
	}
}

func TestMineBlocks_EmptyQueueNoOp(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 0}, nil
	}

	s := initService(t, localCfg(), newFakeLedger(), local)
	if err := s.MineBlocks(context.Background(), 1); err != nil {
		t.Fatalf("MineBlocks failed: %v", err)
	}
	if local.calls["Mine"] != 0 {
		t.Error("an empty queue must not trigger mining")
	}
}

func TestMineBlocks_Guards(t *testing.T) {
	local := newFakeLocal()
	s := initService(t, localCfg(), newFakeLedger(), local)
	probes := local.calls["FetchNetworkInfo"]

	for _, count := range []int{0, -1} {
		err := s.MineBlocks(context.Background(), count)
		wantCode(t, err, apperror.CodeInvalidParameters)
	}
	if local.calls["FetchNetworkInfo"] != probes || local.calls["Mine"] != 0 {
		t.Error("invalid block counts must not touch the node")
	}

	prod := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	wantCode(t, prod.MineBlocks(context.Background(), 1), apperror.CodeInvalidConfig)
}

func TestMintTokens(t *testing.T) {
	local := newFakeLocal()
	var gotAddr, gotAmount string
	local.mintFn = func(address, amount string) error {
		gotAddr, gotAmount = address, amount
		return nil
	}

	s := withWallet(t, initService(t, localCfg(), newFakeLedger(), local))

	if err := s.MintTokens(context.Background(), "", "1000"); err != nil {
		t.Fatalf("MintTokens failed: %v", err)
	}

	addr, _ := s.Address()
	if gotAddr != addr || gotAmount != "1000" {
		t.Errorf("empty address must mint to the active wallet, got %s/%s", gotAddr, gotAmount)
	}
}

func TestMintTokens_Guards(t *testing.T) {
	prod := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	wantCode(t, prod.MintTokens(context.Background(), validID, "100"), apperror.CodeInvalidConfig)

	s := initService(t, localCfg(), newFakeLedger(), newFakeLocal())
	wantCode(t, s.MintTokens(context.Background(), "", "100"), apperror.CodeWalletNotConnected)
}

func TestWaitForConfirmation_Confirms(t *testing.T) {
	ledger := newFakeLedger()
	polls := 0
	ledger.statusFn = func(id string) (*domain.TransactionStatus, error) {
		polls++
		if polls < 3 {
			return &domain.TransactionStatus{ID: id, State: domain.StatusPending}, nil
		}
		return &domain.TransactionStatus{
			ID:        id,
			State:     domain.StatusConfirmed,
			Confirmed: &domain.Confirmation{BlockHeight: 10, ConfirmationCount: 1},
		}, nil
	}

	s := initService(t, localCfg(), ledger, newFakeLocal())
	status, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("WaitForConfirmation failed: %v", err)
	}
	if status.State != domain.StatusConfirmed || polls != 3 {
		t.Errorf("unexpected outcome: state=%s polls=%d", status.State, polls)
	}
}

func TestWaitForConfirmation_AutoMine(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 1}, nil
	}
	ledger := newFakeLedger()
	ledger.statusFn = func(id string) (*domain.TransactionStatus, error) {
		if local.calls["Mine"] > 0 {
			return &domain.TransactionStatus{ID: id, State: domain.StatusConfirmed,
				Confirmed: &domain.Confirmation{BlockHeight: 1}}, nil
		}
		return &domain.TransactionStatus{ID: id, State: domain.StatusPending}, nil
	}

	s := initService(t, localCfg(), ledger, local)
	status, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
		AutoMine:     true,
	})
	if err != nil {
		t.Fatalf("WaitForConfirmation failed: %v", err)
	}
	if status.State != domain.StatusConfirmed {
		t.Errorf("expected confirmation after auto-mine, got %s", status.State)
	}
	if local.calls["Mine"] == 0 {
		t.Error("auto-mine must trigger block production while pending")
	}
}

func TestWaitForConfirmation_AutoMineEmptyQueue(t *testing.T) {
	local := newFakeLocal()
	ledger := newFakeLedger()
	polls := 0
	ledger.statusFn = func(id string) (*domain.TransactionStatus, error) {
		polls++
		if polls < 3 {
			return &domain.TransactionStatus{ID: id, State: domain.StatusPending}, nil
		}
		return &domain.TransactionStatus{ID: id, State: domain.StatusConfirmed,
			Confirmed: &domain.Confirmation{BlockHeight: 1}}, nil
	}

	s := initService(t, localCfg(), ledger, local)
	_, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
		AutoMine:     true,
	})
	if err != nil {
		t.Fatalf("WaitForConfirmation failed: %v", err)
	}
	if local.calls["Mine"] != 0 {
		t.Error("an empty pending queue must suppress auto-mining")
	}
}

func TestWaitForConfirmation_LocalDownIsFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.statusFn = func(id string) (*domain.TransactionStatus, error) {
		return nil, apperror.New(apperror.CodeLocalNetworkNotRunning)
	}

	s := initService(t, localCfg(), ledger, newFakeLocal())
	start := time.Now()
	_, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      5 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	wantCode(t, err, apperror.CodeLocalNetworkNotRunning)
	if time.Since(start) > time.Second {
		t.Error("an unreachable local network must abort the wait immediately")
	}
}

func TestWaitForConfirmation_TimeoutWithPendingQueue(t *testing.T) {
	local := newFakeLocal()
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return &domain.NetworkInfo{QueueLength: 4}, nil
	}

	s := initService(t, localCfg(), newFakeLedger(), local)
	_, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})

	appErr := wantCode(t, err, apperror.CodeMiningRequired)
	if appErr.Field("pendingCount") != 4 {
		t.Errorf("expected pendingCount 4, got %v", appErr.Field("pendingCount"))
	}
}

func TestWaitForConfirmation_TimeoutProduction(t *testing.T) {
	s := initService(t, prodCfg(), newFakeLedger(), newFakeLocal())
	_, err := s.WaitForConfirmation(context.Background(), validID, WaitOptions{
		Timeout:      30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})

	wantCode(t, err, apperror.CodeTransactionFailed)
	if !apperror.IsRetryable(err) {
		t.Error("a production timeout must be retryable")
	}
}

func TestOperations_LocalNodeDownAfterInitialize(t *testing.T) {
	ledger := newFakeLedger()
	local := newFakeLocal()
	s := withWallet(t, initService(t, localCfg(), ledger, local))

	// The node dies after a successful Initialize.
	local.infoFn = func() (*domain.NetworkInfo, error) {
		return nil, errors.New("connect ECONNREFUSED 127.0.0.1:1984")
	}

	ctx := context.Background()
	ops := []struct {
		name       string
		ledgerCall string
		call       func() error
	}{
		{"GetBalance", "GetBalance", func() error { _, err := s.GetBalance(ctx, validID); return err }},
		{"EstimatePrice", "GetPrice", func() error { _, err := s.EstimatePrice(ctx, 100); return err }},
		{"UploadData", "UploadData", func() error { _, err := s.UploadData(ctx, []byte("x"), nil); return err }},
		{"RetrieveData", "GetData", func() error { _, err := s.RetrieveData(ctx, validID); return err }},
		{"GetTransactionStatus", "GetStatus", func() error { _, err := s.GetTransactionStatus(ctx, validID); return err }},
		{"Transfer", "Transfer", func() error { _, err := s.Transfer(ctx, validID, "100"); return err }},
		{"SearchByTags", "SearchByTags", func() error {
			_, err := s.SearchByTags(ctx, []domain.Tag{{Name: "App-Name", Value: "x"}}, 0)
			return err
		}},
	}

	probes := local.calls["FetchNetworkInfo"]
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			wantCode(t, op.call(), apperror.CodeLocalNetworkNotRunning)
			if local.calls["FetchNetworkInfo"] != probes+1 {
				t.Error("the operation must re-check the local node")
			}
			probes = local.calls["FetchNetworkInfo"]
			if ledger.calls[op.ledgerCall] != 0 {
				t.Error("a dead local node must not let the call reach the ledger")
			}
		})
	}
}

func TestRetrieveData_AvailabilityCheckedBeforeValidation(t *testing.T) {
	local := newFakeLocal()
	s := initService(t, localCfg(), newFakeLedger(), local)

	local.infoFn = func() (*domain.NetworkInfo, error) {
		return nil, errors.New("connect ECONNREFUSED 127.0.0.1:1984")
	}

	// Connectivity wins over the malformed id.
	_, err := s.RetrieveData(context.Background(), "not-an-id")
	wantCode(t, err, apperror.CodeLocalNetworkNotRunning)
}

func TestClassification_TransportErrorOnLocal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balanceFn = func(address string) (winston.Amount, error) {
		return winston.Zero(), errors.New("connect ECONNREFUSED 127.0.0.1:1984")
	}

	s := initService(t, localCfg(), ledger, newFakeLocal())
	_, err := s.GetBalance(context.Background(), validID)
	wantCode(t, err, apperror.CodeLocalNetworkNotRunning)
}

func TestClassification_TransportErrorOnProduction(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balanceFn = func(address string) (winston.Amount, error) {
		return winston.Zero(), errors.New("dial tcp: connection refused")
	}

	s := initService(t, prodCfg(), ledger, newFakeLocal())
	_, err := s.GetBalance(context.Background(), validID)
	wantCode(t, err, apperror.CodeNetworkError)
}
