package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// KeyProvider provisions a ledger signing key (an account address) for a
// newly registered user.
type KeyProvider interface {
	NewAccount(ctx context.Context) (string, error)
}

// NodeKeyProvider creates and unlocks accounts on the ledger node over its
// personal JSON-RPC surface. Accounts are unlocked indefinitely so the
// intermediary can sign with them; acceptable for the permissioned
// deployment this targets.
type NodeKeyProvider struct {
	rpcURL   string
	password string
	http     *http.Client
}

func NewNodeKeyProvider(rpcURL, accountPassword string) *NodeKeyProvider {
	return &NodeKeyProvider{
		rpcURL:   rpcURL,
		password: accountPassword,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *NodeKeyProvider) NewAccount(ctx context.Context) (string, error) {
	var address string
	if err := p.call(ctx, "personal_newAccount", []any{p.password}, &address); err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyProvisioning, err)
	}

	// 0 duration keeps the account unlocked until node restart.
	if err := p.call(ctx, "personal_unlockAccount", []any{address, p.password, 0}, nil); err != nil {
		return "", fmt.Errorf("%w: unlock %s: %v", ErrKeyProvisioning, address, err)
	}
	return address, nil
}

func (p *NodeKeyProvider) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if result != nil {
		return json.Unmarshal(rpcResp.Result, result)
	}
	return nil
}
