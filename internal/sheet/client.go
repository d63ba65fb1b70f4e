// Package sheet implements the spreadsheet collaborator: typed row hydration,
// cross-sheet auxiliary cell reads, and batched diagnostic writeback over the
// Google Sheets REST API.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

const defaultAPIBase = "https://sheets.googleapis.com/v4/spreadsheets"

// Client is a thin Google Sheets values API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *tokenSource
}

// NewClient builds a Client authenticating with the service-account key file
// at keyPath.
func NewClient(keyPath string, timeout time.Duration) (*Client, error) {
	hc := &http.Client{Timeout: timeout}
	ts, err := newTokenSource(hc, keyPath)
	if err != nil {
		return nil, err
	}
	return &Client{httpClient: hc, baseURL: defaultAPIBase, tokens: ts}, nil
}

// newClientForTest injects the base URL and a pre-built token source.
func newClientForTest(hc *http.Client, baseURL string, tokens *tokenSource) *Client {
	return &Client{httpClient: hc, baseURL: baseURL, tokens: tokens}
}

// valueRange mirrors the API's ValueRange message.
type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values,omitempty"`
}

// Values reads a whole range as rows of strings.
func (c *Client) Values(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	var vr valueRange
	path := fmt.Sprintf("/%s/values/%s", spreadsheetID, url.PathEscape(readRange))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &vr); err != nil {
		return nil, err
	}
	return stringRows(vr.Values), nil
}

// BatchGet reads several ranges in one call and returns the first cell of
// each, keyed by the range string the API echoes back.
func (c *Client) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) (map[string]string, error) {
	if len(ranges) == 0 {
		return map[string]string{}, nil
	}
	q := url.Values{}
	for _, r := range ranges {
		q.Add("ranges", r)
	}

	var resp struct {
		ValueRanges []valueRange `json:"valueRanges"`
	}
	path := fmt.Sprintf("/%s/values:batchGet", spreadsheetID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		rows := stringRows(vr.Values)
		if len(rows) > 0 && len(rows[0]) > 0 {
			out[vr.Range] = rows[0][0]
		} else {
			out[vr.Range] = ""
		}
	}
	return out, nil
}

// CellUpdate is one range write for BatchUpdate.
type CellUpdate struct {
	Range  string
	Values [][]string
}

// BatchUpdate writes several ranges in one call.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]valueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, valueRange{Range: u.Range, Values: anyRows(u.Values)})
	}
	body := map[string]any{
		"valueInputOption": "USER_ENTERED",
		"data":             data,
	}
	path := fmt.Sprintf("/%s/values:batchUpdate", spreadsheetID)
	return c.do(ctx, http.MethodPost, path, nil, body, &struct{}{})
}

// Clear empties a range.
func (c *Client) Clear(ctx context.Context, spreadsheetID, clearRange string) error {
	path := fmt.Sprintf("/%s/values/%s:clear", spreadsheetID, url.PathEscape(clearRange))
	return c.do(ctx, http.MethodPost, path, nil, map[string]any{}, &struct{}{})
}

// Update overwrites one range.
func (c *Client) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error {
	q := url.Values{}
	q.Set("valueInputOption", "USER_ENTERED")
	body := valueRange{Range: writeRange, Values: anyRows(values)}
	path := fmt.Sprintf("/%s/values/%s", spreadsheetID, url.PathEscape(writeRange))
	return c.do(ctx, http.MethodPut, path, q, body, &struct{}{})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var req *http.Request
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &model.ConnectivityError{Op: "sheet " + method + " " + path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusInternalServerError {
		return &model.ConnectivityError{
			Op:  "sheet " + method + " " + path,
			Err: fmt.Errorf("status %d", res.StatusCode),
		}
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sheet %s %s: status %d", method, path, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode sheet response: %w", err)
	}
	return nil
}

// stringRows flattens API cell values (strings or numbers) into strings.
func stringRows(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case string:
				rows[i][j] = v
			case float64:
				rows[i][j] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				rows[i][j] = strconv.FormatBool(v)
			case nil:
				rows[i][j] = ""
			default:
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows
}

func anyRows(values [][]string) [][]any {
	rows := make([][]any, len(values))
	for i, row := range values {
		rows[i] = make([]any, len(row))
		for j, cell := range row {
			rows[i][j] = cell
		}
	}
	return rows
}
