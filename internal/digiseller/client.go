// Package digiseller implements the pricing-API collaborator: token
// authentication, product description lookup, bulk price submission, and the
// paginated seller goods listing.
package digiseller

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
	"github.com/fairyhunter13/plati-repricer/internal/pricing"
)

// tokenValidityMargin is subtracted from the token expiry before reuse so a
// token never expires mid-request.
const tokenValidityMargin = time.Minute

// Client talks to the Digiseller API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sellerID   int64
	apiKey     string

	// token cache is read-mostly; refresh uses the double-check pattern so
	// concurrent callers never refresh twice.
	tokenMu        sync.Mutex
	token          string
	tokenValidThru time.Time

	cache *descriptionCache
}

// New creates a Client against the given API base URL.
func New(baseURL string, sellerID int64, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		sellerID:   sellerID,
		apiKey:     apiKey,
		cache:      newDescriptionCache(),
	}
}

// validToken returns a cached token, refreshing it under the lock only when
// it is still invalid after re-checking.
func (c *Client) validToken(ctx context.Context) (string, error) {
	if tok, ok := c.cachedToken(); ok {
		return tok, nil
	}
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Now().Add(tokenValidityMargin).Before(c.tokenValidThru) {
		return c.token, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

func (c *Client) cachedToken() (string, bool) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Now().Add(tokenValidityMargin).Before(c.tokenValidThru) {
		return c.token, true
	}
	return "", false
}

// authenticate performs /apilogin with the sha256(apiKey+timestamp) signature.
// Caller must hold tokenMu.
func (c *Client) authenticate(ctx context.Context) error {
	ts := time.Now().Unix()
	sum := sha256.Sum256([]byte(c.apiKey + strconv.FormatInt(ts, 10)))
	payload := map[string]any{
		"seller_id": c.sellerID,
		"timestamp": ts,
		"sign":      hex.EncodeToString(sum[:]),
	}

	var tok authToken
	if err := c.postJSON(ctx, "/apilogin", nil, payload, &tok); err != nil {
		return err
	}
	if tok.Token == "" {
		return &model.APIError{Retval: tok.Retval, Desc: "empty token: " + tok.Desc}
	}
	c.token = tok.Token
	c.tokenValidThru = tok.ValidThru
	obs.Logger.Info("digiseller_token_refreshed", "valid_thru", tok.ValidThru)
	return nil
}

// ProductDescription returns a product's base price and per-unit count.
// Successful lookups are cached for the lifetime of the client so concurrent
// pipelines targeting one product do not repeat the call.
func (c *Client) ProductDescription(ctx context.Context, productID int64) (pricing.ProductPricing, error) {
	if p, ok := c.cache.Get(productID); ok {
		return p, nil
	}

	var data productData
	path := fmt.Sprintf("/products/%d/data", productID)
	if err := c.getJSON(ctx, path, map[string]string{"format": "json"}, &data); err != nil {
		return pricing.ProductPricing{}, err
	}
	if data.Retval != 0 || data.Product.ID == 0 {
		return pricing.ProductPricing{}, model.ErrProductNotFound
	}

	unitCount := 1
	if data.Product.PricesUnit != nil && data.Product.PricesUnit.UnitCnt > 0 {
		unitCount = data.Product.PricesUnit.UnitCnt
	}
	p := pricing.ProductPricing{BasePrice: data.Product.Price, UnitCount: unitCount}
	c.cache.Set(productID, p)
	return p, nil
}

// BulkUpdatePrices submits a consolidated batch and returns the remote task
// id. The explicit queue-limit retval maps to RateLimitError; other non-zero
// retvals are fatal API errors.
func (c *Client) BulkUpdatePrices(ctx context.Context, updates []model.PriceUpdate) (string, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return "", err
	}

	var resp updateResponse
	query := map[string]string{"token": token}
	if err := c.postJSON(ctx, "/goods/price/update", query, toPayload(updates), &resp); err != nil {
		return "", err
	}
	if resp.Retval != 0 {
		desc := strings.ToLower(resp.RetvalDesc)
		if strings.Contains(desc, "queue limit") {
			return "", &model.RateLimitError{Detail: resp.RetvalDesc}
		}
		return "", &model.APIError{Retval: resp.Retval, Desc: resp.RetvalDesc}
	}
	if resp.TaskID == "" {
		return "", &model.APIError{Retval: resp.Retval, Desc: "missing task id"}
	}
	return resp.TaskID, nil
}

// SellerItems fetches all seller goods, following API pagination.
func (c *Client) SellerItems(ctx context.Context) ([]SellerItem, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	var all []SellerItem
	for page, totalPages := 1, 1; page <= totalPages; page++ {
		payload := map[string]any{
			"token":     token,
			"seller_id": c.sellerID,
			"order_col": "cntsell",
			"order_dir": "desc",
			"rows":      1000,
			"page":      page,
		}
		var resp sellerItemsResponse
		if err := c.postJSON(ctx, "/seller-goods", nil, payload, &resp); err != nil {
			return nil, err
		}
		if resp.Retval != 0 {
			return nil, &model.APIError{Retval: resp.Retval, Desc: resp.RetvalDesc}
		}
		totalPages = resp.TotalPages
		if len(resp.Items) == 0 {
			break
		}
		all = append(all, resp.Items...)
	}
	obs.Logger.Info("digiseller_seller_items_fetched", "count", len(all))
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, query map[string]string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, query, body, out)
}

// doJSON performs one API round trip. Network failures and 5xx responses are
// ConnectivityError (retryable); other non-2xx statuses are fatal API errors.
func (c *Client) doJSON(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &model.ConnectivityError{Op: "digiseller " + method + " " + path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusInternalServerError {
		return &model.ConnectivityError{
			Op:  "digiseller " + method + " " + path,
			Err: fmt.Errorf("status %d", res.StatusCode),
		}
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return &model.APIError{Retval: res.StatusCode, Desc: "unexpected http status"}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
