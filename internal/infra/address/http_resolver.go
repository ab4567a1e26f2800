package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
)

var ErrAddressService = errors.New("address service error")

// HTTPResolver 向使用者地址服務查詢地址
// GET {baseURL}/api/v1/addresses/{id}，轉送呼叫者的 Authorization
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewHTTPResolver(baseURL string, timeout time.Duration, client *http.Client) *HTTPResolver {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

type addressResponse struct {
	Data *model.Address `json:"data"`
}

/*
Resolve 查詢並驗證地址擁有者
錯誤:
  - model.ErrAddressNotFound: 404 或回應沒有資料
  - model.ErrAddressForbidden: 401/403，或地址擁有者不是呼叫者
  - ErrAddressService: 其他非 2xx 回應
*/
func (r *HTTPResolver) Resolve(ctx context.Context, addressID string, caller model.CallerAuth) (*model.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/v1/addresses/%s", r.baseURL, url.PathEscape(addressID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build address request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if caller.Token != "" {
		req.Header.Set(constants.HeaderAuthorization, caller.Token)
	}
	if caller.UserID != "" {
		req.Header.Set(constants.HeaderUserID, caller.UserID)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request address %s: %w", addressID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.ErrAddressNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, model.ErrAddressForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAddressService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload addressResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode address response: %w", err)
	}
	if payload.Data == nil {
		return nil, model.ErrAddressNotFound
	}

	addr := payload.Data.Normalize()
	if addr.UserID != "" && caller.UserID != "" && addr.UserID != caller.UserID {
		return nil, model.ErrAddressForbidden
	}
	if addr.ID == "" {
		addr.ID = addressID
	}
	return &addr, nil
}
