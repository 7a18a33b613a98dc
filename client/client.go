package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	apierrors "realestate-marketplace-onchain/errors"
	"realestate-marketplace-onchain/model"
)

// Client は起動中のサーバーのマーケットプレイスAPIを呼び出す
type Client struct {
	rest *resty.Client
}

// APIError はエラーレスポンスをデコードしたもの (2xx以外)
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewClient はbaseURL向けのクライアントを作る。timeoutが0なら無制限に待つ
func NewClient(baseURL string, timeout time.Duration) *Client {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetError(&apierrors.ErrorResponse{})
	if timeout > 0 {
		rest.SetTimeout(timeout)
	}
	return &Client{rest: rest}
}

type propertiesResponse struct {
	Properties []model.Property `json:"properties"`
	Count      int              `json:"count"`
}

func (c *Client) Info(ctx context.Context) (*model.ContractInfo, error) {
	var info model.ContractInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/contract/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) View(ctx context.Context) (*model.ViewState, error) {
	var view model.ViewState
	if err := c.do(ctx, http.MethodGet, "/api/v1/view", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) SelectTab(ctx context.Context, tab model.Tab) (*model.ViewState, error) {
	var view model.ViewState
	body := map[string]string{"tab": string(tab)}
	if err := c.do(ctx, http.MethodPut, "/api/v1/view/tab", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Properties は全物件を返す。ownedなら接続アカウントの物件のみ
func (c *Client) Properties(ctx context.Context, owned bool) ([]model.Property, error) {
	path := "/api/v1/properties"
	if owned {
		path += "/owned"
	}

	var resp propertiesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

func (c *Client) Mint(ctx context.Context, title, location, price string) (*model.TxResult, error) {
	body := map[string]string{
		"title":    title,
		"location": location,
		"price":    price,
	}
	var result model.TxResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/properties", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) List(ctx context.Context, propertyID uint64, price string) (*model.TxResult, error) {
	var result model.TxResult
	path := "/api/v1/properties/" + strconv.FormatUint(propertyID, 10) + "/list"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"price": price}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Buy(ctx context.Context, propertyID uint64) (*model.TxResult, error) {
	var result model.TxResult
	path := "/api/v1/properties/" + strconv.FormatUint(propertyID, 10) + "/buy"
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	var v model.TxVerification
	if err := c.do(ctx, http.MethodGet, "/api/v1/tx/"+txHash, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.rest.R().
		SetContext(ctx).
		SetResult(out)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if e, ok := resp.Error().(*apierrors.ErrorResponse); ok && e != nil {
			apiErr.Code = e.Error.Code
			apiErr.Message = e.Error.Message
			apiErr.RequestID = e.Error.RequestID
		}
		return apiErr
	}
	return nil
}
