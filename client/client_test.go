package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-marketplace-onchain/model"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestInfo(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"address":"0x5FbDB2315678afecb367f032d93F642f64180aa3","account":"0x01","connected":true,"chain_id":"31337"}`)

	info, err := NewClient(srv.URL, 0).Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/contract/info", rec.path)
	assert.True(t, info.Connected)
	assert.Equal(t, "31337", info.ChainID)
}

func TestProperties(t *testing.T) {
	body := `{"properties":[{"id":1,"title":"Loft","location":"Osaka","price_wei":"1500000000000000000","price_eth":"1.5","owner":"0x01","for_sale":true}],"count":1}`

	t.Run("all", func(t *testing.T) {
		srv, rec := newServer(t, http.StatusOK, body)

		list, err := NewClient(srv.URL, 0).Properties(context.Background(), false)
		require.NoError(t, err)

		assert.Equal(t, "/api/v1/properties", rec.path)
		require.Len(t, list, 1)
		assert.Equal(t, "1500000000000000000", list[0].Price.String())
		assert.True(t, list[0].ForSale)
	})

	t.Run("owned", func(t *testing.T) {
		srv, rec := newServer(t, http.StatusOK, `{"properties":[],"count":0}`)

		list, err := NewClient(srv.URL, 0).Properties(context.Background(), true)
		require.NoError(t, err)

		assert.Equal(t, "/api/v1/properties/owned", rec.path)
		assert.Empty(t, list)
	})
}

func TestMint(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, `{"action":"mint","tx_hash":"0xabc","block_number":3,"gas_used":21000,"status":"success"}`)

	result, err := NewClient(srv.URL, 0).Mint(context.Background(), "Loft", "Osaka", "1.5")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, map[string]string{"title": "Loft", "location": "Osaka", "price": "1.5"}, rec.body)
	assert.Equal(t, "0xabc", result.TxHash)
	assert.Equal(t, uint64(3), result.BlockNumber)
}

func TestListAndBuy(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"action":"list","status":"success"}`)
	c := NewClient(srv.URL, 0)

	_, err := c.List(context.Background(), 7, "2")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/properties/7/list", rec.path)
	assert.Equal(t, "2", rec.body["price"])

	_, err = c.Buy(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/properties/7/buy", rec.path)
}

func TestSelectTab(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"tab":"owned","account":"","connected":false,"properties":[],"owned":[]}`)

	view, err := NewClient(srv.URL, 0).SelectTab(context.Background(), model.TabOwned)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "owned", rec.body["tab"])
	assert.Equal(t, model.TabOwned, view.Tab)
}

func TestAPIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusConflict, `{"error":{"code":"NOT_FOR_SALE","message":"property is not for sale: 2","request_id":"req-1"}}`)

	_, err := NewClient(srv.URL, 0).Buy(context.Background(), 2)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "NOT_FOR_SALE", apiErr.Code)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Equal(t, "NOT_FOR_SALE: property is not for sale: 2", err.Error())
}

func TestAPIError_NoEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, 0).VerifyTransaction(context.Background(), "0x01")
	require.Error(t, err)
	assert.Equal(t, "server returned 404", err.Error())
}
