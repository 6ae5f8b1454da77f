package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
)

const (
	DefaultBaseURL = "https://apiv2.shiprocket.in/v1/external"

	loginPath   = "/auth/login"
	createPath  = "/orders/create/adhoc"
	trackPath   = "/courier/track/awb/"
	cancelPath  = "/orders/cancel/shipment/awbs"
	maxBodySize = 1 << 20
)

// Client talks to the carrier's REST API. It knows nothing about sessions:
// every authenticated call takes the bearer token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, loginPath, "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// shipmentData holds the create-shipment fields, which the carrier returns
// either at the top level or inside a "data" envelope.
type shipmentData struct {
	OrderID          flexString `json:"order_id"`
	ShipmentID       flexString `json:"shipment_id"`
	Status           flexString `json:"status"`
	StatusCode       flexInt    `json:"status_code"`
	AWBCode          flexString `json:"awb_code"`
	CourierCompanyID flexString `json:"courier_company_id"`
	CourierName      flexString `json:"courier_name"`
	TrackingURL      flexString `json:"tracking_url"`
	LabelURL         flexString `json:"label_url"`
}

type shipmentEnvelope struct {
	shipmentData
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) CreateShipment(ctx context.Context, token string, payload domain.ShipmentPayload) (*domain.CarrierShipmentResponse, error) {
	var env shipmentEnvelope
	if err := c.do(ctx, http.MethodPost, createPath, token, payload, &env); err != nil {
		return nil, err
	}

	data := env.shipmentData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		data = shipmentData{}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode shipment data: %w", err)
		}
	}

	return &domain.CarrierShipmentResponse{
		Success:          env.Success,
		Message:          env.Message,
		OrderID:          string(data.OrderID),
		ShipmentID:       string(data.ShipmentID),
		Status:           string(data.Status),
		StatusCode:       int(data.StatusCode),
		AWBCode:          string(data.AWBCode),
		CourierCompanyID: string(data.CourierCompanyID),
		CourierName:      string(data.CourierName),
		TrackingURL:      string(data.TrackingURL),
		LabelURL:         string(data.LabelURL),
	}, nil
}

func (c *Client) TrackShipment(ctx context.Context, token, awb string) (domain.TrackingInfo, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, trackPath+url.PathEscape(awb), token, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) CancelShipments(ctx context.Context, token string, awbs []string) (domain.TrackingInfo, error) {
	var raw json.RawMessage
	body := struct {
		AWBs []string `json:"awbs"`
	}{AWBs: awbs}
	if err := c.do(ctx, http.MethodPost, cancelPath, token, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("carrier request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.CarrierResponseError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte, fallback string) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return fallback
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number, numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
