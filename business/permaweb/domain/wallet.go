package domain

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

const (
	walletKeyBits = 4096

	// RSA-PSS salt length used for transaction signatures.
	pssSaltLength = 32
)

// JWK is an RSA private key in JSON Web Key form, the interchange format for
// wallet key files. All numeric members are base64url without padding.
type JWK struct {
	KeyType string `json:"kty"`
	N       string `json:"n"`
	E       string `json:"e"`
	D       string `json:"d"`
	P       string `json:"p"`
	Q       string `json:"q"`
	DP      string `json:"dp"`
	DQ      string `json:"dq"`
	QI      string `json:"qi"`
}

// Wallet wraps an RSA keypair with its derived address.
type Wallet struct {
	key     *rsa.PrivateKey
	jwk     JWK
	address string
}

// GenerateWallet creates a fresh RSA-4096 wallet.
func GenerateWallet() (*Wallet, error) {
	key, err := rsa.GenerateKey(rand.Reader, walletKeyBits)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return walletFromKey(key)
}

// ParseWallet loads a wallet from a JWK JSON document.
func ParseWallet(raw string) (*Wallet, error) {
	var jwk JWK
	if err := json.Unmarshal([]byte(raw), &jwk); err != nil {
		return nil, fmt.Errorf("wallet key is not valid JSON: %w", err)
	}

	if jwk.KeyType != "RSA" {
		return nil, fmt.Errorf("wallet key type must be RSA, got %q", jwk.KeyType)
	}

	n, err := decodeField("n", jwk.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeField("e", jwk.E)
	if err != nil {
		return nil, err
	}
	d, err := decodeField("d", jwk.D)
	if err != nil {
		return nil, err
	}
	p, err := decodeField("p", jwk.P)
	if err != nil {
		return nil, err
	}
	q, err := decodeField("q", jwk.Q)
	if err != nil {
		return nil, err
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: n,
			E: int(e.Int64()),
		},
		D:      d,
		Primes: []*big.Int{p, q},
	}
	key.Precompute()

	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("wallet key is not a valid RSA key: %w", err)
	}

	w, err := walletFromKey(key)
	if err != nil {
		return nil, err
	}
	w.jwk = jwk
	return w, nil
}

func walletFromKey(key *rsa.PrivateKey) (*Wallet, error) {
	modulus := key.PublicKey.N.Bytes()
	digest := sha256.Sum256(modulus)

	return &Wallet{
		key:     key,
		jwk:     keyToJWK(key),
		address: base64.RawURLEncoding.EncodeToString(digest[:]),
	}, nil
}

// Address returns the wallet address, the base64url SHA-256 of the public
// modulus.
func (w *Wallet) Address() string {
	return w.address
}

// Owner returns the base64url public modulus used as the transaction owner
// field.
func (w *Wallet) Owner() string {
	return base64.RawURLEncoding.EncodeToString(w.key.PublicKey.N.Bytes())
}

// Sign produces an RSA-PSS SHA-256 signature over data.
func (w *Wallet) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, w.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: pssSaltLength,
		Hash:       crypto.SHA256,
	})
}

// ExportJWK serializes the wallet back to JWK JSON.
func (w *Wallet) ExportJWK() (string, error) {
	out, err := json.Marshal(w.jwk)
	if err != nil {
		return "", fmt.Errorf("failed to serialize wallet key: %w", err)
	}
	return string(out), nil
}

func keyToJWK(key *rsa.PrivateKey) JWK {
	enc := func(b *big.Int) string {
		return base64.RawURLEncoding.EncodeToString(b.Bytes())
	}

	return JWK{
		KeyType: "RSA",
		N:       enc(key.PublicKey.N),
		E:       base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		D:       enc(key.D),
		P:       enc(key.Primes[0]),
		Q:       enc(key.Primes[1]),
		DP:      enc(key.Precomputed.Dp),
		DQ:      enc(key.Precomputed.Dq),
		QI:      enc(key.Precomputed.Qinv),
	}
}

func decodeField(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("wallet key is missing required JWK field %q", name)
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("wallet key field %q is not base64url: %w", name, err)
	}
	return new(big.Int).SetBytes(raw), nil
}
