package arweave

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/permalab/permaweb-agent/business/permaweb/domain"
)

// txFormat is the transaction format in use; format 2 carries a merkle data
// root instead of inline data in the signature preimage.
const txFormat = 2

// wireTag is a transaction tag with base64url-encoded members.
type wireTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Transaction is the wire form submitted to POST /tx.
type Transaction struct {
	Format    int       `json:"format"`
	ID        string    `json:"id"`
	LastTx    string    `json:"last_tx"`
	Owner     string    `json:"owner"`
	Tags      []wireTag `json:"tags"`
	Target    string    `json:"target"`
	Quantity  string    `json:"quantity"`
	Data      string    `json:"data"`
	DataSize  string    `json:"data_size"`
	DataRoot  string    `json:"data_root"`
	Reward    string    `json:"reward"`
	Signature string    `json:"signature"`
}

// NewDataTransaction builds an unsigned data transaction.
func NewDataTransaction(data []byte, tags []domain.Tag, reward, lastTx string) *Transaction {
	tx := &Transaction{
		Format:   txFormat,
		LastTx:   lastTx,
		Quantity: "0",
		Data:     base64.RawURLEncoding.EncodeToString(data),
		DataSize: strconv.Itoa(len(data)),
		DataRoot: base64.RawURLEncoding.EncodeToString(computeDataRoot(data)),
		Reward:   reward,
		Tags:     encodeTags(tags),
	}
	return tx
}

// NewTransferTransaction builds an unsigned token transfer.
func NewTransferTransaction(target, quantity, reward, lastTx string) *Transaction {
	return &Transaction{
		Format:   txFormat,
		LastTx:   lastTx,
		Target:   target,
		Quantity: quantity,
		DataSize: "0",
		Reward:   reward,
		Tags:     []wireTag{},
	}
}

// Sign fills in the owner, signature and id fields using the wallet key.
func (t *Transaction) Sign(w *domain.Wallet) error {
	t.Owner = w.Owner()

	preimage, err := t.signaturePreimage()
	if err != nil {
		return err
	}

	digest := deepHash(preimage)
	sig, err := w.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("transaction signing failed: %w", err)
	}

	id := sha256.Sum256(sig)
	t.Signature = base64.RawURLEncoding.EncodeToString(sig)
	t.ID = base64.RawURLEncoding.EncodeToString(id[:])
	return nil
}

// signaturePreimage assembles the deep-hash structure the signature covers.
func (t *Transaction) signaturePreimage() (deepHashItem, error) {
	owner, err := decodeB64("owner", t.Owner)
	if err != nil {
		return deepHashItem{}, err
	}
	target, err := decodeB64("target", t.Target)
	if err != nil {
		return deepHashItem{}, err
	}
	lastTx, err := decodeB64("last_tx", t.LastTx)
	if err != nil {
		return deepHashItem{}, err
	}
	dataRoot, err := decodeB64("data_root", t.DataRoot)
	if err != nil {
		return deepHashItem{}, err
	}

	tagItems := make([]deepHashItem, 0, len(t.Tags))
	for _, tag := range t.Tags {
		name, err := decodeB64("tag name", tag.Name)
		if err != nil {
			return deepHashItem{}, err
		}
		value, err := decodeB64("tag value", tag.Value)
		if err != nil {
			return deepHashItem{}, err
		}
		tagItems = append(tagItems, listItem(blobItem(name), blobItem(value)))
	}

	return listItem(
		blobItem([]byte(strconv.Itoa(t.Format))),
		blobItem(owner),
		blobItem(target),
		blobItem([]byte(t.Quantity)),
		blobItem([]byte(t.Reward)),
		blobItem(lastTx),
		deepHashItem{list: tagItems},
		blobItem([]byte(t.DataSize)),
		blobItem(dataRoot),
	), nil
}

// DecodedTags returns the transaction tags in plain form.
func (t *Transaction) DecodedTags() ([]domain.Tag, error) {
	tags := make([]domain.Tag, 0, len(t.Tags))
	for _, tag := range t.Tags {
		name, err := decodeB64("tag name", tag.Name)
		if err != nil {
			return nil, err
		}
		value, err := decodeB64("tag value", tag.Value)
		if err != nil {
			return nil, err
		}
		tags = append(tags, domain.Tag{Name: string(name), Value: string(value)})
	}
	return tags, nil
}

func encodeTags(tags []domain.Tag) []wireTag {
	wire := make([]wireTag, 0, len(tags))
	for _, tag := range tags {
		wire = append(wire, wireTag{
			Name:  base64.RawURLEncoding.EncodeToString([]byte(tag.Name)),
			Value: base64.RawURLEncoding.EncodeToString([]byte(tag.Value)),
		})
	}
	return wire
}

func decodeB64(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("transaction %s is not base64url: %w", field, err)
	}
	return raw, nil
}
