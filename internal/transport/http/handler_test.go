package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	printapp "github.com/astro-web3/print-gateway/internal/app/printing"
	"github.com/astro-web3/print-gateway/internal/config"
	"github.com/astro-web3/print-gateway/internal/domain/authz"
	"github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/internal/infra/token"
	httptransport "github.com/astro-web3/print-gateway/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mockDispatcher struct {
	dispatchFunc func(ctx context.Context, job printing.Job) (string, error)
	jobs         []printing.Job
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job printing.Job) (string, error) {
	m.jobs = append(m.jobs, job)
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, job)
	}
	return "42", nil
}

func (m *mockDispatcher) Printers(context.Context) ([]printing.PrinterInfo, error) {
	return []printing.PrinterInfo{
		{Name: "Office", IsDefault: true},
		{Name: "Label"},
	}, nil
}

func newTestRouter(t *testing.T, security bool, d *mockDispatcher) *gin.Engine {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Secret = testSecret
	cfg.Auth.Security = security

	authn := authz.NewAuthenticator(token.NewVerifier(testSecret), nil)
	handler := httptransport.NewHandler(printapp.NewService(d))
	return httptransport.NewRouter(handler, httptransport.NewAuthMiddleware(authn, security), cfg)
}

func ptr(s string) *string { return &s }

func sign(t *testing.T, claims authz.Claims) string {
	t.Helper()
	tok, err := token.NewSigner(testSecret).Sign(claims, 0)
	require.NoError(t, err)
	return tok
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func postJSON(t *testing.T, router http.Handler, target string, body map[string]any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestReady(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})

	w := get(router, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ready for print!", w.Body.String())
}

func TestSecurity_NoTokenForbidden(t *testing.T) {
	router := newTestRouter(t, true, &mockDispatcher{})

	for _, target := range []string{"/", "/printers"} {
		w := get(router, target, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, target)
		assert.Equal(t, map[string]any{"success": false, "message": "No token provided"}, decode(t, w))
	}

	w := postJSON(t, router, "/print", map[string]any{"data": b64("x")}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSecurity_HealthzIsOpen(t *testing.T) {
	router := newTestRouter(t, true, &mockDispatcher{})

	w := get(router, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestInvalidToken(t *testing.T) {
	for _, security := range []bool{false, true} {
		router := newTestRouter(t, security, &mockDispatcher{})

		w := get(router, "/printers", http.Header{"X-Access-Token": {"not-a-token"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "security=%t", security)
		assert.Equal(t, map[string]any{"success": false, "message": "Failed to authenticate token"}, decode(t, w))

		w = postJSON(t, router, "/print", map[string]any{"token": "not-a-token", "data": b64("x")}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "security=%t", security)
	}
}

func TestInvalidToken_WrongSecret(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})
	tok, err := token.NewSigner("other-secret").Sign(authz.Claims{Action: ptr("get_printers")}, 0)
	require.NoError(t, err)

	w := get(router, "/printers?token="+url.QueryEscape(tok), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListPrinters(t *testing.T) {
	router := newTestRouter(t, true, &mockDispatcher{})
	tok := sign(t, authz.Claims{Action: ptr("get_printers")})

	w := get(router, "/printers?token="+url.QueryEscape(tok), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"Office","isDefault":true},{"name":"Label","isDefault":false}]`, w.Body.String())
}

func TestListPrinters_WithoutTokenWhenSecurityOff(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})

	w := get(router, "/printers", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPrinters_WrongAction(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})
	tok := sign(t, authz.Claims{Action: ptr("print")})

	w := get(router, "/printers", http.Header{"X-Access-Token": {tok}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "unauthorized action"}, decode(t, w))
}

func TestPrint_Success(t *testing.T) {
	d := &mockDispatcher{}
	router := newTestRouter(t, true, d)
	tok := sign(t, authz.Claims{
		Action:   ptr("print"),
		Printer:  ptr("Office"),
		CheckSum: ptr(authz.Digest([]byte("%PDF-1.4"))),
	})

	w := postJSON(t, router, "/print", map[string]any{
		"token":   tok,
		"data":    b64("%PDF-1.4"),
		"printer": "Office",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "status": "success", "jobId": "42"}, decode(t, w))
	require.Len(t, d.jobs, 1)
	assert.Equal(t, "PDF", d.jobs[0].Format)
	assert.Equal(t, "Office", d.jobs[0].Printer)
	assert.Equal(t, []byte("%PDF-1.4"), d.jobs[0].Data)
}

func TestPrint_MissingData(t *testing.T) {
	d := &mockDispatcher{}
	router := newTestRouter(t, false, d)

	w := postJSON(t, router, "/print", map[string]any{"printer": "Office"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"status": "failed", "error": "file data not found"}, decode(t, w))
	assert.Empty(t, d.jobs)
}

func TestPrint_MalformedBody(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/print", bytes.NewBufferString(`{"data":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w)["error"])
}

func TestPrint_Denied(t *testing.T) {
	tests := []struct {
		name   string
		claims authz.Claims
		body   map[string]any
		reason string
	}{
		{
			name:   "printer",
			claims: authz.Claims{Printer: ptr("Office")},
			body:   map[string]any{"data": b64("x"), "printer": "Label"},
			reason: "unauthorized printer",
		},
		{
			name:   "type",
			claims: authz.Claims{Type: ptr("RAW")},
			body:   map[string]any{"data": b64("x"), "type": "PDF"},
			reason: "unauthorized type",
		},
		{
			name:   "checksum",
			claims: authz.Claims{CheckSum: ptr(authz.Digest([]byte("signed")))},
			body:   map[string]any{"data": b64("tampered")},
			reason: "Failed to validate check sum",
		},
		{
			name:   "printer before missing data",
			claims: authz.Claims{Printer: ptr("Office")},
			body:   map[string]any{"printer": "Label"},
			reason: "unauthorized printer",
		},
		{
			name:   "action before missing data",
			claims: authz.Claims{Action: ptr("get_printers")},
			body:   map[string]any{},
			reason: "unauthorized action",
		},
		{
			name:   "printer before undecodable data",
			claims: authz.Claims{Printer: ptr("Office")},
			body:   map[string]any{"data": "%%%not base64%%%", "printer": "Label"},
			reason: "unauthorized printer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDispatcher{}
			router := newTestRouter(t, true, d)

			w := postJSON(t, router, "/print", tt.body, http.Header{"X-Access-Token": {sign(t, tt.claims)}})

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, map[string]any{"success": false, "message": tt.reason}, decode(t, w))
			assert.Empty(t, d.jobs)
		})
	}
}

func TestPrint_DispatchFailure(t *testing.T) {
	d := &mockDispatcher{
		dispatchFunc: func(context.Context, printing.Job) (string, error) {
			return "", &printing.DispatchError{Err: errors.New("printer not found")}
		},
	}
	router := newTestRouter(t, false, d)

	w := postJSON(t, router, "/print", map[string]any{"data": b64("x"), "printer": "Nope"}, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, map[string]any{"status": "failed", "error": "error on printing: printer not found"}, decode(t, w))
}

func TestPrint_ConversionFailure(t *testing.T) {
	d := &mockDispatcher{
		dispatchFunc: func(context.Context, printing.Job) (string, error) {
			return "", &printing.ConversionError{From: "PDF", To: "EMF", Err: errors.New("magick exited 1")}
		},
	}
	router := newTestRouter(t, false, d)

	w := postJSON(t, router, "/print", map[string]any{"data": b64("x")}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"status": "failed", "error": "error on converting to EMF: magick exited 1"}, decode(t, w))
}

func TestTokenPrecedence(t *testing.T) {
	router := newTestRouter(t, true, &mockDispatcher{})
	listing := sign(t, authz.Claims{Action: ptr("get_printers")})
	printTok := sign(t, authz.Claims{Action: ptr("print")})

	// body wins over query and header
	w := postJSON(t, router, "/print?token=garbage", map[string]any{
		"token": printTok,
		"data":  b64("x"),
	}, http.Header{"X-Access-Token": {"garbage"}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// query wins over header
	w = get(router, "/printers?token="+url.QueryEscape(listing), http.Header{"X-Access-Token": {printTok}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// header alone
	w = get(router, "/printers", http.Header{"X-Access-Token": {listing}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRequestID(t *testing.T) {
	router := newTestRouter(t, false, &mockDispatcher{})

	w := get(router, "/healthz", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))

	w = get(router, "/healthz", nil)
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)
}
