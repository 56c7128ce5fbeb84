package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/permalab/permaweb-agent/internal/apperror"
)

// Connection defaults.
const (
	DefaultGatewayHost = "arweave.net"
	DefaultProtocol    = "https"
	DefaultTimeoutMs   = 20000

	LocalDevPort = 1984
)

// jwkRequiredFields are the RSA JWK members a wallet key must carry as
// non-empty strings.
var jwkRequiredFields = []string{"kty", "n", "e", "d", "p", "q", "dp", "dq", "qi"}

// ConnectionConfig is the validated, immutable gateway connection
// configuration. Constructed once at startup and never mutated afterwards.
type ConnectionConfig struct {
	Host      string
	Protocol  string
	Port      int
	Timeout   time.Duration
	Logging   bool
	WalletKey string // raw JWK JSON, empty when no wallet is configured
}

// BaseURL renders the gateway base URL.
func (c *ConnectionConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// HasWallet reports whether a wallet key was supplied.
func (c *ConnectionConfig) HasWallet() bool {
	return c.WalletKey != ""
}

// IsLocalDev reports whether this configuration points at a local development
// network. Pure derivation from the config: host must be localhost or
// 127.0.0.1, port must be 1984 and protocol must be plain http. Comparisons
// are case-sensitive; "LOCALHOST" or "HTTP" classify as production-style.
func (c *ConnectionConfig) IsLocalDev() bool {
	return isLocalHost(c.Host) && c.Port == LocalDevPort && c.Protocol == "http"
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

// Resolve turns raw settings into a validated ConnectionConfig, applying
// precedence rules and host-sensitive defaults. All failures carry
// INVALID_CONFIG with the offending field named.
func Resolve(raw RawSettings) (*ConnectionConfig, error) {
	host := strings.TrimSpace(raw.Gateway)
	if host == "" {
		host = strings.TrimSpace(raw.Host)
	}
	if host == "" {
		host = DefaultGatewayHost
	}
	if strings.Contains(host, "://") {
		return nil, apperror.New(apperror.CodeInvalidConfig,
			apperror.WithMessage(fmt.Sprintf("gateway host must not embed a protocol: %q", host)),
			apperror.WithField("field", "host"))
	}

	protocol := strings.TrimSpace(raw.Protocol)
	if protocol == "" {
		protocol = DefaultProtocol
	}
	if protocol != "http" && protocol != "https" {
		return nil, apperror.New(apperror.CodeInvalidConfig,
			apperror.WithMessage(fmt.Sprintf("protocol must be http or https, got %q", raw.Protocol)),
			apperror.WithField("field", "protocol"))
	}

	port, err := resolvePort(raw.Port, host, protocol)
	if err != nil {
		return nil, err
	}

	timeoutMs := DefaultTimeoutMs
	if t := strings.TrimSpace(raw.TimeoutMs); t != "" {
		timeoutMs, err = strconv.Atoi(t)
		if err != nil || timeoutMs <= 0 {
			return nil, apperror.New(apperror.CodeInvalidConfig,
				apperror.WithMessage(fmt.Sprintf("timeout must be a positive integer of milliseconds, got %q", raw.TimeoutMs)),
				apperror.WithField("field", "timeout_ms"))
		}
	}

	walletKey := strings.TrimSpace(raw.WalletKey)
	if walletKey != "" {
		if err := validateWalletKey(walletKey); err != nil {
			return nil, err
		}
	}

	return &ConnectionConfig{
		Host:      host,
		Protocol:  protocol,
		Port:      port,
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		Logging:   raw.Logging,
		WalletKey: walletKey,
	}, nil
}

// resolvePort applies the host-sensitive port default: an explicit port wins;
// a localhost-like host defaults to the local-dev port so that setting only
// the host is enough to enter local-dev mode; any other host gets the
// protocol-appropriate port. Production hosts never default to 1984.
func resolvePort(rawPort, host, protocol string) (int, error) {
	if p := strings.TrimSpace(rawPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return 0, apperror.New(apperror.CodeInvalidConfig,
				apperror.WithMessage(fmt.Sprintf("port must be an integer between 1 and 65535, got %q", rawPort)),
				apperror.WithField("field", "port"))
		}
		return port, nil
	}

	if isLocalHost(host) {
		return LocalDevPort, nil
	}
	if protocol == "http" {
		return 80, nil
	}
	return 443, nil
}

// validateWalletKey checks that the supplied wallet key is parseable JSON and
// carries every required RSA JWK member as a non-empty string.
func validateWalletKey(walletKey string) error {
	var jwk map[string]any
	if err := json.Unmarshal([]byte(walletKey), &jwk); err != nil {
		return apperror.New(apperror.CodeInvalidConfig,
			apperror.WithMessage("wallet key is not valid JSON"),
			apperror.WithCause(err),
			apperror.WithField("field", "wallet_key"))
	}

	for _, field := range jwkRequiredFields {
		val, ok := jwk[field].(string)
		if !ok || val == "" {
			return apperror.New(apperror.CodeInvalidConfig,
				apperror.WithMessage(fmt.Sprintf("wallet key is missing required JWK field %q", field)),
				apperror.WithField("field", "wallet_key"),
				apperror.WithField("missingField", field))
		}
	}

	return nil
}

// CheckPrecedence inspects raw settings for conflicting or incomplete
// combinations without failing. Returned warnings are human-readable and
// stable.
func CheckPrecedence(raw RawSettings) []string {
	var warnings []string

	gateway := strings.TrimSpace(raw.Gateway)
	legacy := strings.TrimSpace(raw.Host)
	if gateway != "" && legacy != "" && gateway != legacy {
		warnings = append(warnings, fmt.Sprintf(
			"both ARWEAVE_GATEWAY (%q) and legacy ARWEAVE_HOST (%q) are set; ARWEAVE_GATEWAY wins", gateway, legacy))
	}

	host := gateway
	if host == "" {
		host = legacy
	}
	protocol := strings.TrimSpace(raw.Protocol)
	port := strings.TrimSpace(raw.Port)

	if protocol == "https" && port == "80" {
		warnings = append(warnings, "protocol https with port 80 is usually a mistake")
	}
	if protocol == "http" && port == "443" {
		warnings = append(warnings, "protocol http with port 443 is usually a mistake")
	}

	if isLocalHost(host) {
		if protocol != "" && protocol != "http" {
			warnings = append(warnings, fmt.Sprintf(
				"host %q looks like local development but protocol is %q; local networks speak plain http", host, protocol))
		}
		if port != "" && port != strconv.Itoa(LocalDevPort) {
			warnings = append(warnings, fmt.Sprintf(
				"host %q looks like local development but port is %s; the local network listens on %d", host, port, LocalDevPort))
		}
	}

	if protocol == "https" && isLocalHost(host) {
		warnings = append(warnings, "https against a localhost gateway will be classified as production-style")
	}

	return warnings
}
