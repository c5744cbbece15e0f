package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/scenario"
)

// Client runs simulations on a remote server. It implements communication.Simulator.
type Client struct {
	serverURL string
	http      *http.Client
}

var _ communication.Simulator = (*Client)(nil)

func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		http:      http.DefaultClient,
	}
}

func (c *Client) Sequence(ctx context.Context, req communication.SequenceRequest) (communication.SequenceResponse, error) {
	var res communication.SequenceResponse
	err := c.do(ctx, http.MethodPost, "/v1/sequences", req, &res)
	return res, err
}

func (c *Client) Evaluate(ctx context.Context, req communication.EvaluateRequest) (communication.EvaluateResponse, error) {
	var res communication.EvaluateResponse
	err := c.do(ctx, http.MethodPost, "/v1/stopping/evaluate", req, &res)
	return res, err
}

func (c *Client) RunStopping(ctx context.Context, req communication.StoppingBatchRequest) (communication.StoppingBatchResponse, error) {
	var res communication.StoppingBatchResponse
	err := c.do(ctx, http.MethodPost, "/v1/stopping/batch", req, &res)
	return res, err
}

func (c *Client) FundPath(ctx context.Context, req communication.FundPathRequest) (communication.FundPathResponse, error) {
	var res communication.FundPathResponse
	err := c.do(ctx, http.MethodPost, "/v1/fund/path", req, &res)
	return res, err
}

func (c *Client) RunFund(ctx context.Context, req communication.FundBatchRequest) (communication.FundBatchResponse, error) {
	var res communication.FundBatchResponse
	err := c.do(ctx, http.MethodPost, "/v1/fund/batch", req, &res)
	return res, err
}

func (c *Client) Scenario(ctx context.Context, lab string) (communication.ScenarioResponse, error) {
	var res communication.ScenarioResponse
	err := c.do(ctx, http.MethodGet, "/v1/scenario/"+url.PathEscape(lab), nil, &res)
	return res, err
}

func (c *Client) Audit(ctx context.Context, lab, market, sector string) (scenario.Report, error) {
	var res scenario.Report
	q := url.Values{"market": {market}, "sector": {sector}}
	err := c.do(ctx, http.MethodGet, "/v1/scenario/"+url.PathEscape(lab)+"/audit?"+q.Encode(), nil, &res)
	return res, err
}

// do sends body as JSON and decodes the response into out. Validation failures
// reported by the server come back as *params.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, &payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e communication.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return fmt.Errorf("%s returned %s", path, resp.Status)
		}
		if e.Parameter != "" {
			return &params.Error{Name: e.Parameter, Value: e.Value, Range: e.Range}
		}
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
