package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, svcs *testServices) http.Handler {
	t.Helper()
	t.Cleanup(svcs.orders.Close)
	return NewHTTPHandler(svcs.orders, svcs.ledger, svcs.checker, zap.NewNop()).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, newTestServices(nil))

	rec, resp := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", rec.Code, resp)
	}
}

func TestValidateStock(t *testing.T) {
	h := newTestRouter(t, newTestServices(map[string]int{"p1": 5, "p2": 0}))

	rec, _ := doRequest(t, h, http.MethodPost, "/api/stock/validate", `{"items":[{"product_id":"p1","quantity":5}]}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec, resp := doRequest(t, h, http.MethodPost, "/api/stock/validate",
		`{"items":[{"product_id":"p1","quantity":6},{"product_id":"p2","quantity":1}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	shortfalls, ok := resp["data"].([]any)
	if !ok || len(shortfalls) != 2 {
		t.Errorf("expected 2 shortfalls, got %v", resp["data"])
	}
}

func TestReduceStock(t *testing.T) {
	svcs := newTestServices(map[string]int{"p1": 5})
	h := newTestRouter(t, svcs)

	rec, _ := doRequest(t, h, http.MethodPost, "/api/stock/reduce", `{"items":[{"product_id":"p1","quantity":2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svcs.stock.stock["p1"] != 3 {
		t.Errorf("expected stock 3, got %d", svcs.stock.stock["p1"])
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/stock/reduce", `{"items":[{"product_id":"p1","quantity":0}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", rec.Code)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/stock/reduce", `{"items":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestRestockAndListings(t *testing.T) {
	svcs := newTestServices(map[string]int{"p1": 0, "p2": 3})
	h := newTestRouter(t, svcs)

	rec, _ := doRequest(t, h, http.MethodGet, "/api/stock/out", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec, resp := doRequest(t, h, http.MethodGet, "/api/stock/low?threshold=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if low, _ := resp["data"].([]any); len(low) != 1 {
		t.Errorf("expected p2 only, got %v", resp["data"])
	}

	rec, _ = doRequest(t, h, http.MethodGet, "/api/stock/low?threshold=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad threshold, got %d", rec.Code)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/stock/p1/restock", `{"quantity":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svcs.stock.stock["p1"] != 4 {
		t.Errorf("expected stock 4, got %d", svcs.stock.stock["p1"])
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/stock/ghost/restock", `{"quantity":4}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

const checkoutBody = `{
	"user_id": "u1",
	"customer_email": "buyer@example.com",
	"payment_method": "cod",
	"items": [{"product_id":"p1","product_name":"Mug","product_code":"MUG-1","quantity":2,"price":"149.50"}],
	"shipping_address": {"name":"Ravi Kumar","address_line1":"1 Main St","city":"Chennai","state":"TN","pin_code":"600001","country":"India","phone":"9000000000"}
}`

func TestCheckoutDispatchTrack(t *testing.T) {
	svcs := newTestServices(map[string]int{"p1": 5})
	h := newTestRouter(t, svcs)

	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders", checkoutBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", rec.Code, resp)
	}
	data := resp["data"].(map[string]any)
	orderID := data["order_id"].(string)
	if data["status"] != "confirmed" || data["subtotal"] != "299" {
		t.Errorf("unexpected checkout data %v", data)
	}

	rec, resp = doRequest(t, h, http.MethodGet, "/api/orders/"+orderID+"/tracking", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 before an awb exists, got %d: %v", rec.Code, resp)
	}

	rec, resp = doRequest(t, h, http.MethodPost, "/api/orders/"+orderID+"/dispatch", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, resp)
	}
	if shipment := resp["data"].(map[string]any); shipment["awb_number"] != "AWB123" {
		t.Errorf("unexpected shipment %v", shipment)
	}

	rec, resp = doRequest(t, h, http.MethodGet, "/api/orders/"+orderID+"/tracking", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, resp)
	}
	if tracking := resp["data"].(map[string]any); tracking["awb"] != "AWB123" {
		t.Errorf("unexpected tracking %v", tracking)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/orders/"+orderID+"/cancel-shipment", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	h := newTestRouter(t, newTestServices(map[string]int{"p1": 1}))

	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders", checkoutBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(resp["message"].(string), "Mug: requested 2, available 1") {
		t.Errorf("unexpected message %v", resp["message"])
	}
}

func TestDispatch_Errors(t *testing.T) {
	svcs := newTestServices(map[string]int{"p1": 5})
	h := newTestRouter(t, svcs)

	rec, _ := doRequest(t, h, http.MethodPost, "/api/orders/unknown/dispatch", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	_, resp := doRequest(t, h, http.MethodPost, "/api/orders", checkoutBody)
	orderID := resp["data"].(map[string]any)["order_id"].(string)

	svcs.carrier.createFail = "Pincode not serviceable"
	rec, resp = doRequest(t, h, http.MethodPost, "/api/orders/"+orderID+"/dispatch", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(resp["message"].(string), "Pincode not serviceable") {
		t.Errorf("expected carrier message, got %v", resp["message"])
	}
}

func TestCheckout_NegativePrice(t *testing.T) {
	svcs := newTestServices(map[string]int{"p1": 5})
	h := newTestRouter(t, svcs)

	body := strings.Replace(checkoutBody, `"price":"149.50"`, `"price":"-149.50"`, 1)
	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", rec.Code, resp)
	}
	if !strings.Contains(resp["message"].(string), "items[0].price_at_purchase") {
		t.Errorf("expected field in message, got %v", resp["message"])
	}
	if svcs.stock.stock["p1"] != 5 {
		t.Errorf("expected stock untouched, got %d", svcs.stock.stock["p1"])
	}
}
