package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Config locates the FireFly-style intermediary and the two contract APIs
// registered on it.
type Config struct {
	Host        string // e.g. http://127.0.0.1:5000
	Namespace   string // e.g. default
	ImageAPI    string // contract API name for the image registry
	LikeAPI     string // contract API name for the like registry
	IPFSGateway string // public gateway prefix for blob links
	Timeout     time.Duration
}

// Client is the Ledger Gateway: a thin HTTP client over the intermediary's
// namespaced REST API. All submissions are fire-and-forget; confirmation
// arrives on the event feed (see Subscriber).
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// BlobRef points at a published off-chain blob.
type BlobRef struct {
	Hash string // content address on the off-chain store
	Link string // public gateway URL
}

func (c *Client) apiBase() string {
	return fmt.Sprintf("%s/api/v1/namespaces/%s", strings.TrimRight(c.cfg.Host, "/"), c.cfg.Namespace)
}

// SubmitRegisterOriginal submits a register transaction for a new root
// image. The returned transaction id proves acceptance by the intermediary,
// not on-chain confirmation.
func (c *Client) SubmitRegisterOriginal(ctx context.Context, in RegisterInput, signingKey string) (string, error) {
	return c.invoke(ctx, c.cfg.ImageAPI, "registerImage", map[string]any{
		"sha256Hash":     hexArg(in.SHA256),
		"pHash":          hexArg(in.PHash),
		"ipfsHash":       in.IPFSHash,
		"requireRoyalty": in.RequireRoyalty,
	}, signingKey, nil)
}

// SubmitRegisterDerivative registers a derivative of an already-confirmed
// image. Derivatives never require royalty themselves.
func (c *Client) SubmitRegisterDerivative(ctx context.Context, in RegisterInput, originalImageID int64, signingKey string) (string, error) {
	return c.invoke(ctx, c.cfg.ImageAPI, "registerDerivative", map[string]any{
		"sha256Hash":      hexArg(in.SHA256),
		"pHash":           hexArg(in.PHash),
		"ipfsHash":        in.IPFSHash,
		"originalImageId": originalImageID,
	}, signingKey, nil)
}

// SubmitPayRoyalty pays the royalty for an image on behalf of the signer.
func (c *Client) SubmitPayRoyalty(ctx context.Context, imageID int64, signingKey string) (string, error) {
	return c.invoke(ctx, c.cfg.ImageAPI, "payRoyalty", map[string]any{
		"imageId": imageID,
	}, signingKey, http.Header{"x-firefly-value": []string{"1"}})
}

// SubmitLikePost records a like for an image.
func (c *Client) SubmitLikePost(ctx context.Context, imageID int64, signingKey string) (string, error) {
	return c.invoke(ctx, c.cfg.LikeAPI, "likePost", map[string]any{
		"imageId": imageID,
	}, signingKey, nil)
}

// HasLiked asks the like registry whether userAddress has already liked the
// image, across every post sharing it.
func (c *Client) HasLiked(ctx context.Context, imageID int64, userAddress string) (bool, error) {
	out, err := c.query(ctx, c.cfg.LikeAPI, "hasLiked", map[string]any{
		"imageId": imageID,
		"user":    userAddress,
	})
	if err != nil {
		return false, err
	}
	return parseBoolOutput(out)
}

// GetTransaction fetches a previously submitted transaction. ErrTxNotFound
// means the intermediary no longer knows it, so any match built on it must
// not be trusted.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase()+"/transactions/"+txID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTxNotFound
	case resp.StatusCode >= 300:
		return nil, statusError(resp)
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

// UploadBlob uploads image bytes to the intermediary's data store and
// publishes them to the off-chain network, returning the public reference.
func (c *Client) UploadBlob(ctx context.Context, data []byte, filename, contentType string) (BlobRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return BlobRef{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return BlobRef{}, err
	}
	if err := mw.Close(); err != nil {
		return BlobRef{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+"/data", &body)
	if err != nil {
		return BlobRef{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &created); err != nil {
		return BlobRef{}, fmt.Errorf("upload blob: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+"/data/"+created.ID+"/blob/publish", strings.NewReader("{}"))
	if err != nil {
		return BlobRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var published struct {
		Blob struct {
			Public string `json:"public"`
		} `json:"blob"`
	}
	if err := c.do(req, &published); err != nil {
		return BlobRef{}, fmt.Errorf("publish blob: %w", err)
	}

	ref := BlobRef{
		Hash: published.Blob.Public,
		Link: strings.TrimRight(c.cfg.IPFSGateway, "/") + "/ipfs/" + published.Blob.Public,
	}
	c.log.Debug("blob published", zap.String("hash", ref.Hash))
	return ref, nil
}

func (c *Client) invoke(ctx context.Context, api, method string, input map[string]any, signingKey string, extra http.Header) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"input": input,
		"key":   signingKey,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/apis/%s/invoke/%s", c.apiBase(), api, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	var accepted struct {
		ID string `json:"id"`
		TX string `json:"tx"`
	}
	if err := c.do(req, &accepted); err != nil {
		return "", fmt.Errorf("invoke %s/%s: %w", api, method, err)
	}

	c.log.Info("ledger submission accepted",
		zap.String("api", api),
		zap.String("method", method),
		zap.String("tx_id", accepted.TX))
	return accepted.TX, nil
}

func (c *Client) query(ctx context.Context, api, method string, input map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/apis/%s/query/%s", c.apiBase(), api, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Output json.RawMessage `json:"output"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", api, method, err)
	}
	return result.Output, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrLedgerUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("intermediary rejected request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func parseBoolOutput(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	// EVM connectors return stringly-typed outputs.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("unexpected query output %s", string(raw))
}

func hexArg(h string) string {
	return "0x" + h
}

// Strip0x removes the hex marker the ledger prepends to hash fields.
func Strip0x(h string) string {
	return strings.TrimPrefix(h, "0x")
}
