package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	apierrors "realestate-marketplace-onchain/errors"
	"realestate-marketplace-onchain/model"
	usecase "realestate-marketplace-onchain/usecase/marketplace"
)

type MarketplaceHandler struct {
	marketplaceUC usecase.MarketplaceUsecase
	validate      *validator.Validate
}

func NewMarketplaceHandler(uc usecase.MarketplaceUsecase) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceUC: uc,
		validate:      validator.New(),
	}
}

// Register はマーケットプレイスAPIのルートを登録する
func (h *MarketplaceHandler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/contract/info", h.HandleContractInfo).Methods(http.MethodGet)
	api.HandleFunc("/view", h.HandleGetView).Methods(http.MethodGet)
	api.HandleFunc("/view/tab", h.HandleSelectTab).Methods(http.MethodPut)
	api.HandleFunc("/properties", h.HandleGetProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/owned", h.HandleGetOwnedProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties", h.HandleMintProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/list", h.HandleListProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/buy", h.HandleBuyProperty).Methods(http.MethodPost)
	api.HandleFunc("/tx/{hash}", h.HandleVerifyTransaction).Methods(http.MethodGet)
}

// ===============================================
// リクエスト / レスポンス
// ===============================================

// SelectTabRequest はタブ切り替えリクエスト
type SelectTabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=mint buy owned"`
}

// MintRequest は物件登録リクエスト。priceはETH単位の文字列
type MintRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Location string `json:"location" validate:"required,max=200"`
	Price    string `json:"price" validate:"required"`
}

// ListRequest は売り出しリクエスト
type ListRequest struct {
	Price string `json:"price" validate:"required"`
}

// PropertiesResponse は物件一覧レスポンス
type PropertiesResponse struct {
	Properties []model.Property `json:"properties"`
	Count      int              `json:"count"`
}

// ===============================================
// ハンドラー
// ===============================================

// HandleContractInfo はコントラクトと接続状態を返す
func (h *MarketplaceHandler) HandleContractInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.marketplaceUC.Info())
}

// HandleGetView はビュー状態を返す
func (h *MarketplaceHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.marketplaceUC.View())
}

// HandleSelectTab はタブを切り替える
func (h *MarketplaceHandler) HandleSelectTab(w http.ResponseWriter, r *http.Request) {
	var req SelectTabRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.marketplaceUC.SelectTab(r.Context(), model.Tab(req.Tab))
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetProperties は全物件を取得する
func (h *MarketplaceHandler) HandleGetProperties(w http.ResponseWriter, r *http.Request) {
	list, err := h.marketplaceUC.FetchProperties(r.Context())
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPropertiesResponse(list))
}

// HandleGetOwnedProperties は接続アカウントが所有する物件を取得する
func (h *MarketplaceHandler) HandleGetOwnedProperties(w http.ResponseWriter, r *http.Request) {
	list, err := h.marketplaceUC.FetchOwnedProperties(r.Context())
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPropertiesResponse(list))
}

// HandleMintProperty は物件を登録する
func (h *MarketplaceHandler) HandleMintProperty(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.marketplaceUC.MintProperty(r.Context(), req.Title, req.Location, req.Price)
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListProperty は物件を売りに出す
func (h *MarketplaceHandler) HandleListProperty(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := propertyIDFromPath(w, r)
	if !ok {
		return
	}

	var req ListRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.marketplaceUC.ListPropertyForSale(r.Context(), propertyID, req.Price)
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleBuyProperty は物件を購入する。支払額は取得済み一覧の価格
func (h *MarketplaceHandler) HandleBuyProperty(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := propertyIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.marketplaceUC.BuyProperty(r.Context(), propertyID)
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleVerifyTransaction はトランザクションを検証
func (h *MarketplaceHandler) HandleVerifyTransaction(w http.ResponseWriter, r *http.Request) {
	verification, err := h.marketplaceUC.VerifyTransaction(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		apierrors.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

// ===============================================
// ヘルパー
// ===============================================

func (h *MarketplaceHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		apierrors.BadRequest(w, r, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(w, r, validationErrors)
			return false
		}
		apierrors.BadRequest(w, r, err.Error())
		return false
	}
	return true
}

func propertyIDFromPath(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	propertyID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || propertyID == 0 {
		apierrors.BadRequest(w, r, "Invalid property ID")
		return 0, false
	}
	return propertyID, true
}

func newPropertiesResponse(list []model.Property) PropertiesResponse {
	if list == nil {
		list = []model.Property{}
	}
	return PropertiesResponse{Properties: list, Count: len(list)}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
