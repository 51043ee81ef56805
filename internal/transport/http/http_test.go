package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/ethdenver2026/uristore/internal/node"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

func testHandler() *Handler {
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	n := node.New(memstore.New(r, func() int64 { tick++; return tick }))
	return New(n, slog.Default())
}

func TestHandleReceiveThenRead(t *testing.T) {
	h := testHandler()

	body, _ := json.Marshal(map[string]interface{}{"tx": []interface{}{"mutable://open/a", "hello"}})
	req := httptest.NewRequest("POST", "/api/v1/receive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var receiveResp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receiveResp))
	require.Equal(t, true, receiveResp["accepted"])

	readReq := httptest.NewRequest("GET", "/api/v1/read/mutable/open/a", nil)
	readRec := httptest.NewRecorder()
	h.ServeHTTP(readRec, readReq)
	require.Equal(t, 200, readRec.Code)

	var readResp map[string]interface{}
	require.NoError(t, json.NewDecoder(readRec.Body).Decode(&readResp))
	require.Equal(t, "hello", readResp["data"])
}

func TestHandleReadMissingReturns404(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest("GET", "/api/v1/read/mutable/open/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, 404, rec.Code)
}

func TestHandleWriteAssemblesURIFromPath(t *testing.T) {
	h := testHandler()
	body, _ := json.Marshal(map[string]interface{}{"value": "legacy"})
	req := httptest.NewRequest("POST", "/api/v1/write/mutable/open/legacy-path", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	readReq := httptest.NewRequest("GET", "/api/v1/read/mutable/open/legacy-path", nil)
	readRec := httptest.NewRecorder()
	h.ServeHTTP(readRec, readReq)
	require.Equal(t, 200, readRec.Code)
}

func TestHandleHealthAndSchema(t *testing.T) {
	h := testHandler()

	healthReq := httptest.NewRequest("GET", "/api/v1/health", nil)
	healthRec := httptest.NewRecorder()
	h.ServeHTTP(healthRec, healthReq)
	require.Equal(t, 200, healthRec.Code)

	schemaReq := httptest.NewRequest("GET", "/api/v1/schema", nil)
	schemaRec := httptest.NewRecorder()
	h.ServeHTTP(schemaRec, schemaReq)
	require.Equal(t, 200, schemaRec.Code)

	var schemaResp map[string]interface{}
	require.NoError(t, json.NewDecoder(schemaRec.Body).Decode(&schemaResp))
	require.NotEmpty(t, schemaResp["programKeys"])
}

func TestHandleDelete(t *testing.T) {
	h := testHandler()
	body, _ := json.Marshal(map[string]interface{}{"tx": []interface{}{"mutable://open/a", "hello"}})
	req := httptest.NewRequest("POST", "/api/v1/receive", bytes.NewReader(body))
	h.ServeHTTP(httptest.NewRecorder(), req)

	delReq := httptest.NewRequest("DELETE", "/api/v1/delete/mutable/open/a", nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, delReq)
	require.Equal(t, 200, delRec.Code)
}
