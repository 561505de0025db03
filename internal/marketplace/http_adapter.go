package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"offersync/internal/domain"
)

const serviceName = "marketplace"

type HTTPAdapterOptions struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	// RequestsPerSecond caps outgoing calls across all users.
	RequestsPerSecond int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// HTTPAdapter implements Adapter against a JSON REST API:
//
//	GET   {base}/offers/{id}
//	PATCH {base}/offers/{id}
//	PUT   {base}/offers/price-commands/{commandId}
//	GET   {base}/offers/price-commands/{commandId}/tasks
//	POST  {base}/images
//	POST  {auth}/token (grant_type=refresh_token)
type HTTPAdapter struct {
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	limiter      *rate.Limiter
}

func NewHTTPAdapter(opts HTTPAdapterOptions) (*HTTPAdapter, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("marketplace: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("marketplace: invalid base url: %w", err)
	}
	authURL := strings.TrimRight(strings.TrimSpace(opts.AuthURL), "/")
	if authURL == "" {
		authURL = base + "/auth/oauth"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 9
	}
	return &HTTPAdapter{
		baseURL:      base,
		authURL:      authURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type offerPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"category"`
	Description string `json:"description"`
	SellingMode struct {
		Price domain.PriceChange `json:"price"`
	} `json:"sellingMode"`
	Stock struct {
		Available int `json:"available"`
	} `json:"stock"`
	Publication struct {
		Status string `json:"status"`
	} `json:"publication"`
	Images     []string `json:"images"`
	Parameters []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"parameters"`
}

func (o offerPayload) toDomain() *domain.Offer {
	offer := &domain.Offer{
		ID:          o.ID,
		Name:        o.Name,
		Category:    firstNonEmpty(o.Category.Name, o.Category.ID),
		Description: o.Description,
		Price:       o.SellingMode.Price.Amount,
		Currency:    o.SellingMode.Price.Currency,
		Stock:       o.Stock.Available,
		Status:      domain.OfferStatus(strings.ToLower(o.Publication.Status)),
		Images:      append([]string(nil), o.Images...),
	}
	if len(o.Parameters) > 0 {
		offer.Parameters = make(map[string]string, len(o.Parameters))
		for _, p := range o.Parameters {
			offer.Parameters[p.Name] = strings.Join(p.Values, ", ")
		}
	}
	return offer
}

func (a *HTTPAdapter) GetOffer(ctx context.Context, auth Auth, id string) (*domain.Offer, error) {
	var payload offerPayload
	status, err := a.doJSON(ctx, auth, http.MethodGet, "/offers/"+url.PathEscape(id), nil, &payload)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if payload.ID == "" {
		payload.ID = id
	}
	return payload.toDomain(), nil
}

func (a *HTTPAdapter) UpdateOffer(ctx context.Context, auth Auth, id string, patch Patch) (UpdateResult, error) {
	var out UpdateResult
	status, err := a.doJSON(ctx, auth, http.MethodPatch, "/offers/"+url.PathEscape(id), patch, &out)
	if status == http.StatusNotFound {
		return UpdateResult{}, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, id)
	}
	if err != nil {
		return UpdateResult{}, err
	}
	if out.OfferID == "" {
		out.OfferID = id
	}
	return out, nil
}

type priceCommandRequest struct {
	Modification struct {
		Type  string             `json:"type"`
		Price domain.PriceChange `json:"price"`
	} `json:"modification"`
	OfferCriteria []struct {
		Offers []struct {
			ID string `json:"id"`
		} `json:"offers"`
		Type string `json:"type"`
	} `json:"offerCriteria"`
}

func (a *HTTPAdapter) ChangePrice(ctx context.Context, auth Auth, id string, amount, currency string) (PriceCommand, error) {
	commandID := uuid.NewString()
	var body priceCommandRequest
	body.Modification.Type = "FIXED_PRICE"
	body.Modification.Price = domain.PriceChange{Amount: amount, Currency: currency}
	body.OfferCriteria = make([]struct {
		Offers []struct {
			ID string `json:"id"`
		} `json:"offers"`
		Type string `json:"type"`
	}, 1)
	body.OfferCriteria[0].Type = "CONTAINS_OFFERS"
	body.OfferCriteria[0].Offers = append(body.OfferCriteria[0].Offers, struct {
		ID string `json:"id"`
	}{ID: id})

	var out PriceCommand
	if _, err := a.doJSON(ctx, auth, http.MethodPut, "/offers/price-commands/"+commandID, body, &out); err != nil {
		return PriceCommand{}, err
	}
	if out.ID == "" {
		out.ID = commandID
	}
	return out, nil
}

type commandTasksPayload struct {
	TaskCount struct {
		Total   int `json:"total"`
		Success int `json:"success"`
		Failed  int `json:"failed"`
	} `json:"taskCount"`
	Tasks []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"tasks"`
}

func (a *HTTPAdapter) CheckPriceChangeCommand(ctx context.Context, auth Auth, commandID string) (CommandStatus, error) {
	var payload commandTasksPayload
	if _, err := a.doJSON(ctx, auth, http.MethodGet, "/offers/price-commands/"+url.PathEscape(commandID)+"/tasks", nil, &payload); err != nil {
		return CommandStatus{}, err
	}
	status := CommandStatus{
		ID:      commandID,
		Total:   payload.TaskCount.Total,
		Success: payload.TaskCount.Success,
		Failed:  payload.TaskCount.Failed,
	}
	for _, task := range payload.Tasks {
		if strings.EqualFold(task.Status, "FAIL") && task.Message != "" {
			status.Errors = append(status.Errors, task.Message)
		}
	}
	return status, nil
}

type uploadResponse struct {
	Location string `json:"location"`
}

func (a *HTTPAdapter) UploadImage(ctx context.Context, auth Auth, pathOrURL string) (string, error) {
	var out uploadResponse
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		if _, err := a.doJSON(ctx, auth, http.MethodPost, "/images", map[string]string{"url": pathOrURL}, &out); err != nil {
			return "", err
		}
	} else {
		data, err := os.ReadFile(pathOrURL)
		if err != nil {
			return "", fmt.Errorf("marketplace: read image: %w", err)
		}
		if _, err := a.do(ctx, auth, http.MethodPost, a.baseURL+"/images", bytes.NewReader(data), http.DetectContentType(data), &out); err != nil {
			return "", err
		}
	}
	if out.Location == "" {
		return "", &domain.ExternalServiceError{Service: serviceName, Status: http.StatusOK, Detail: "upload returned no image location"}
	}
	return out.Location, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (a *HTTPAdapter) RefreshToken(ctx context.Context, auth Auth) (Auth, error) {
	if auth.RefreshToken == "" {
		return Auth{}, fmt.Errorf("%w: no refresh token", domain.ErrAuthExpired)
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", auth.RefreshToken)
	if err := a.limiter.Wait(ctx); err != nil {
		return Auth{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Auth{}, fmt.Errorf("marketplace: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.clientID, a.clientSecret)
	resp, err := a.client.Do(req)
	if err != nil {
		return Auth{}, fmt.Errorf("marketplace: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		// refresh token revoked or expired
		return Auth{}, fmt.Errorf("%w: refresh rejected (status %d)", domain.ErrAuthExpired, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return Auth{}, externalError(resp)
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Auth{}, fmt.Errorf("marketplace: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return Auth{}, fmt.Errorf("%w: empty access token", domain.ErrAuthExpired)
	}
	fresh := Auth{
		UserID:       auth.UserID,
		AccessToken:  tok.AccessToken,
		RefreshToken: firstNonEmpty(tok.RefreshToken, auth.RefreshToken),
	}
	if tok.ExpiresIn > 0 {
		fresh.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return fresh, nil
}

func (a *HTTPAdapter) doJSON(ctx context.Context, auth Auth, method, path string, body, out any) (int, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marketplace: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return a.do(ctx, auth, method, a.baseURL+path, reader, contentType, out)
}

func (a *HTTPAdapter) do(ctx context.Context, auth Auth, method, endpoint string, body io.Reader, contentType string, out any) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("marketplace: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("marketplace: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("%w: %s %s", domain.ErrAuthExpired, method, req.URL.Path)
	case resp.StatusCode >= 400:
		return resp.StatusCode, externalError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("marketplace: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type errorPayload struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		UserMessage string `json:"userMessage"`
	} `json:"errors"`
	Message string `json:"message"`
}

func externalError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := strings.TrimSpace(string(data))
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		var msgs []string
		for _, e := range payload.Errors {
			msgs = append(msgs, firstNonEmpty(e.UserMessage, e.Message, e.Code))
		}
		if len(msgs) > 0 {
			detail = strings.Join(msgs, "; ")
		} else if payload.Message != "" {
			detail = payload.Message
		}
	}
	return &domain.ExternalServiceError{Service: serviceName, Status: resp.StatusCode, Detail: detail}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ Adapter = (*HTTPAdapter)(nil)
