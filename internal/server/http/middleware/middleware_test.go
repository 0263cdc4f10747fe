package middleware

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	testhelpers "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingVerifier struct{}

func (failingVerifier) Enabled() bool       { return true }
func (failingVerifier) Verify(string) error { return errors.New("hash corrupted") }

func TestOperatorRequired(t *testing.T) {
	cases := []struct {
		name     string
		verifier testhelpers.VerifierStub
		header   string
		value    string
		want     int
	}{
		{name: "disabled", verifier: testhelpers.VerifierStub{Off: true}, want: http.StatusOK},
		{name: "missing token", verifier: testhelpers.VerifierStub{Token: "op"}, want: http.StatusUnauthorized},
		{name: "wrong token", verifier: testhelpers.VerifierStub{Token: "op"}, header: "Authorization", value: "Bearer nope", want: http.StatusUnauthorized},
		{name: "bearer", verifier: testhelpers.VerifierStub{Token: "op"}, header: "Authorization", value: "Bearer op", want: http.StatusOK},
		{name: "operator header", verifier: testhelpers.VerifierStub{Token: "op"}, header: operatorTokenHeader, value: " op ", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(OperatorRequired(tc.verifier))
			router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(resp.Body.String(), `"kind":"Unauthorized"`) {
				t.Fatalf("expected error envelope, got %s", resp.Body.String())
			}
		})
	}

	router := gin.New()
	router.Use(OperatorRequired(failingVerifier{}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestExtractToken(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if token := extractToken(c); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	c.Request.Header.Set("Authorization", "Bearer abc")
	if token := extractToken(c); token != "abc" {
		t.Fatalf("expected token from header, got %q", token)
	}
	c.Request.Header.Del("Authorization")
	c.Request.Header.Set(operatorTokenHeader, "header-token")
	if token := extractToken(c); token != "header-token" {
		t.Fatalf("expected token from operator header, got %q", token)
	}
}

func TestDecompressRequest(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`{"hash":"h","txid":"t"}`))
	_ = gz.Close()

	router := gin.New()
	router.Use(DecompressRequest())
	var body string
	router.POST("/", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		body = string(data)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(buf.Bytes())))
	req.Header.Set("Content-Encoding", "gzip")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if body != `{"hash":"h","txid":"t"}` {
		t.Fatalf("expected decompressed payload, got %q", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader([]byte("plain"))))
	resp = httptest.NewRecorder()
	body = ""
	router.ServeHTTP(resp, req)
	if body != "plain" {
		t.Fatalf("expected plain body, got %q", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not gzip")))
	req.Header.Set("Content-Encoding", "gzip")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken gzip, got %d", resp.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var levels []slog.Level
	var paths []string
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			levels = append(levels, a.Value.Any().(slog.Level))
		case "path":
			paths = append(paths, a.Value.String())
		}
		return a
	}})
	logger := slog.New(handler)

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/withdrawals/:fingerprint", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	for _, path := range []string{"/withdrawals/ab12", "/fail", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if len(levels) != 3 || levels[0] != slog.LevelInfo || levels[1] != slog.LevelError || levels[2] != slog.LevelInfo {
		t.Fatalf("unexpected levels %v", levels)
	}
	if paths[0] != "/withdrawals/:fingerprint" || paths[2] != "/missing" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
