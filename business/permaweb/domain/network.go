package domain

import (
	"encoding/json"
	"fmt"
)

// NetworkClassification is the derived answer to "what network am I talking
// to". It carries no transport state; it is computed from configuration and,
// in local development, refined by probing the node.
type NetworkClassification struct {
	IsLocalDev     bool `json:"isLocalDev"`
	MiningRequired bool `json:"miningRequired"`
}

// NetworkInfo is the node's self-description as returned by GET /info. Every
// field listed here is required; a response missing any of them is treated as
// not coming from a compatible node.
type NetworkInfo struct {
	Network          string `json:"network"`
	Version          int    `json:"version"`
	Release          int    `json:"release"`
	QueueLength      int    `json:"queue_length"`
	Peers            int    `json:"peers"`
	Height           int    `json:"height"`
	Current          string `json:"current"`
	Blocks           int    `json:"blocks"`
	NodeStateLatency int    `json:"node_state_latency"`
}

// MiningRequired reports whether the node is holding pending transactions
// that need a mined block before they confirm.
func (n *NetworkInfo) MiningRequired() bool {
	return n.QueueLength > 0
}

// networkInfoWire mirrors NetworkInfo with pointer fields so that absent
// members are distinguishable from zero values.
type networkInfoWire struct {
	Network          *string `json:"network"`
	Version          *int    `json:"version"`
	Release          *int    `json:"release"`
	QueueLength      *int    `json:"queue_length"`
	Peers            *int    `json:"peers"`
	Height           *int    `json:"height"`
	Current          *string `json:"current"`
	Blocks           *int    `json:"blocks"`
	NodeStateLatency *int    `json:"node_state_latency"`
}

// ParseNetworkInfo decodes a GET /info body, rejecting responses with
// missing or mistyped fields.
func ParseNetworkInfo(body []byte) (*NetworkInfo, error) {
	var wire networkInfoWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("malformed network info: %w", err)
	}

	missing := func(name string) error {
		return fmt.Errorf("network info is missing required field %q", name)
	}

	switch {
	case wire.Network == nil:
		return nil, missing("network")
	case wire.Version == nil:
		return nil, missing("version")
	case wire.Release == nil:
		return nil, missing("release")
	case wire.QueueLength == nil:
		return nil, missing("queue_length")
	case wire.Peers == nil:
		return nil, missing("peers")
	case wire.Height == nil:
		return nil, missing("height")
	case wire.Current == nil:
		return nil, missing("current")
	case wire.Blocks == nil:
		return nil, missing("blocks")
	case wire.NodeStateLatency == nil:
		return nil, missing("node_state_latency")
	}

	return &NetworkInfo{
		Network:          *wire.Network,
		Version:          *wire.Version,
		Release:          *wire.Release,
		QueueLength:      *wire.QueueLength,
		Peers:            *wire.Peers,
		Height:           *wire.Height,
		Current:          *wire.Current,
		Blocks:           *wire.Blocks,
		NodeStateLatency: *wire.NodeStateLatency,
	}, nil
}

// LocalNetworkState is the last observed state of the local development
// network. Readers always get a consistent snapshot; concurrent refreshes
// resolve last-write-wins.
type LocalNetworkState struct {
	Available      bool `json:"available"`
	QueueLength    int  `json:"queueLength"`
	MiningRequired bool `json:"miningRequired"`
	Height         int  `json:"height"`
}

// StateFromInfo derives the observable local network state from a node info
// snapshot.
func StateFromInfo(info *NetworkInfo) LocalNetworkState {
	return LocalNetworkState{
		Available:      true,
		QueueLength:    info.QueueLength,
		MiningRequired: info.MiningRequired(),
		Height:         info.Height,
	}
}
