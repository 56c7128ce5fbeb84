package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	permaweb "github.com/permalab/permaweb-agent/business/permaweb/app"
	"github.com/permalab/permaweb-agent/business/permaweb/domain"
	"github.com/permalab/permaweb-agent/internal/apperror"
	"github.com/permalab/permaweb-agent/internal/logger"
)

// Response is the uniform action result envelope handed back to the host.
type Response struct {
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload is the serialized error taxonomy for host consumption.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"isRetryable"`
}

// Handlers exposes the permaweb service as named actions with JSON payloads.
type Handlers struct {
	svc    PermawebFacade
	logger logger.LoggerInterface
}

// NewHandlers creates the action handler set.
func NewHandlers(svc PermawebFacade, log logger.LoggerInterface) *Handlers {
	return &Handlers{svc: svc, logger: log}
}

// Action payloads. Data travels base64-encoded through the JSON boundary.
type (
	loadWalletInput struct {
		Key string `json:"key"`
	}
	balanceInput struct {
		Address string `json:"address"`
	}
	priceInput struct {
		Bytes int64 `json:"bytes"`
	}
	uploadInput struct {
		Data string       `json:"data"`
		Tags []domain.Tag `json:"tags"`
	}
	idInput struct {
		ID string `json:"id"`
	}
	transferInput struct {
		Target   string `json:"target"`
		Quantity string `json:"quantity"`
	}
	searchInput struct {
		Tags  []domain.Tag `json:"tags"`
		Limit int          `json:"limit"`
	}
	mineInput struct {
		Blocks int `json:"blocks"`
	}
	mintInput struct {
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
	waitInput struct {
		ID        string `json:"id"`
		TimeoutMs int    `json:"timeoutMs"`
		AutoMine  bool   `json:"autoMine"`
	}

	walletOutput struct {
		Address string `json:"address"`
		Key     string `json:"key,omitempty"`
	}
	amountOutput struct {
		Winston string `json:"winston"`
		AR      string `json:"ar"`
	}
	dataOutput struct {
		Data string `json:"data"`
	}
	networkOutput struct {
		IsLocalDev     bool                     `json:"isLocalDev"`
		MiningRequired bool                     `json:"miningRequired"`
		State          domain.LocalNetworkState `json:"state"`
	}
	pendingOutput struct {
		Count int `json:"count"`
	}
)

// Dispatch routes an action by name. Unknown actions fail with
// INVALID_PARAMETERS; handler errors are folded into the response envelope.
func (h *Handlers) Dispatch(ctx context.Context, action string, input json.RawMessage) *Response {
	result, err := h.dispatch(ctx, action, input)
	if err != nil {
		return h.fail(ctx, action, err)
	}
	return &Response{OK: true, Data: result}
}

func (h *Handlers) dispatch(ctx context.Context, action string, input json.RawMessage) (any, error) {
	switch action {
	case "createWallet":
		return h.createWallet(ctx)
	case "loadWallet":
		var in loadWalletInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.loadWallet(ctx, in)
	case "getAddress":
		addr, err := h.svc.Address()
		if err != nil {
			return nil, err
		}
		return walletOutput{Address: addr}, nil
	case "getBalance":
		var in balanceInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		balance, err := h.svc.GetBalance(ctx, in.Address)
		if err != nil {
			return nil, err
		}
		return amountOutput{Winston: balance.String(), AR: balance.AR().String()}, nil
	case "estimatePrice":
		var in priceInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		price, err := h.svc.EstimatePrice(ctx, in.Bytes)
		if err != nil {
			return nil, err
		}
		return amountOutput{Winston: price.String(), AR: price.AR().String()}, nil
	case "uploadData":
		var in uploadInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.uploadData(ctx, in)
	case "retrieveData":
		var in idInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		data, err := h.svc.RetrieveData(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		return dataOutput{Data: base64.StdEncoding.EncodeToString(data)}, nil
	case "getTransactionStatus":
		var in idInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.svc.GetTransactionStatus(ctx, in.ID)
	case "transfer":
		var in transferInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.svc.Transfer(ctx, in.Target, in.Quantity)
	case "searchByTags":
		var in searchInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.svc.SearchByTags(ctx, in.Tags, in.Limit)
	case "getNetworkState":
		return networkOutput{
			IsLocalDev:     h.svc.IsLocalDev(),
			MiningRequired: h.svc.Classification().MiningRequired,
			State:          h.svc.LocalState(),
		}, nil
	case "getPendingCount":
		count, err := h.svc.GetPendingCount(ctx)
		if err != nil {
			return nil, err
		}
		return pendingOutput{Count: count}, nil
	case "mineBlocks":
		var in mineInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return nil, h.svc.MineBlocks(ctx, in.Blocks)
	case "mintTokens":
		var in mintInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return nil, h.svc.MintTokens(ctx, in.Address, in.Amount)
	case "waitForConfirmation":
		var in waitInput
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return h.svc.WaitForConfirmation(ctx, in.ID, permaweb.WaitOptions{
			Timeout:  time.Duration(in.TimeoutMs) * time.Millisecond,
			AutoMine: in.AutoMine,
		})
	default:
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("dispatch"),
			apperror.WithMessage(fmt.Sprintf("unknown action %q", action)))
	}
}

func (h *Handlers) createWallet(ctx context.Context) (any, error) {
	w, err := h.svc.CreateWallet(ctx)
	if err != nil {
		return nil, err
	}
	key, err := w.ExportJWK()
	if err != nil {
		return nil, err
	}
	return walletOutput{Address: w.Address(), Key: key}, nil
}

func (h *Handlers) loadWallet(ctx context.Context, in loadWalletInput) (any, error) {
	w, err := h.svc.LoadWallet(ctx, in.Key)
	if err != nil {
		return nil, err
	}
	return walletOutput{Address: w.Address()}, nil
}

func (h *Handlers) uploadData(ctx context.Context, in uploadInput) (any, error) {
	data, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("uploadData"),
			apperror.WithMessage("data must be base64 encoded"),
			apperror.WithCause(err))
	}
	return h.svc.UploadData(ctx, data, in.Tags)
}

// fail builds the error envelope. The message is the rendered user-facing
// form with remediation and environment guidance attached.
func (h *Handlers) fail(ctx context.Context, action string, err error) *Response {
	appErr := apperror.Wrap(err, apperror.CodeUnknown, action)
	h.logger.Error(ctx, "action failed",
		"action", action,
		"code", string(appErr.Code),
		"error", appErr.Error())

	return &Response{
		OK: false,
		Error: &ErrorPayload{
			Code:      string(appErr.Code),
			Message:   apperror.RenderUserMessage(appErr),
			Retryable: apperror.IsRetryable(appErr),
		},
	}
}

func decode(input json.RawMessage, out any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, out); err != nil {
		return apperror.New(apperror.CodeInvalidParameters,
			apperror.WithOperation("dispatch"),
			apperror.WithMessage("malformed action payload"),
			apperror.WithCause(err))
	}
	return nil
}
