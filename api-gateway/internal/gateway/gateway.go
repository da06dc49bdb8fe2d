package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// hopHeaders are connection-scoped and must not be forwarded.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// UploadOverheadBytes is added to the upload cap to leave room for multipart
// boundaries and the other form fields.
const UploadOverheadBytes = 1 << 20

// Proxy forwards requests to the bank service unchanged. Bodies larger than
// maxBodyBytes are refused before anything is sent upstream.
type Proxy struct {
	target       string
	client       *http.Client
	maxBodyBytes int64
}

func NewProxy(target string, timeout time.Duration, maxBodyBytes int64) *Proxy {
	return &Proxy{
		target:       strings.TrimSuffix(target, "/"),
		client:       &http.Client{Timeout: timeout},
		maxBodyBytes: maxBodyBytes,
	}
}

// Forward proxies the current request and copies the upstream response back.
func (p *Proxy) Forward(c *gin.Context) {
	logger := middleware.LoggerFrom(c)

	targetURL := p.target + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		if c.Request.ContentLength > p.maxBodyBytes {
			p.tooLarge(c)
			return
		}
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, p.maxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				p.tooLarge(c)
				return
			}
			middleware.RespondWithError(c, http.StatusBadRequest, "Failed to read request body")
			return
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create request")
		return
	}
	copyHeaders(req.Header, c.Request.Header)
	if id := middleware.RequestID(c); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	req.Header.Set("X-Forwarded-For", c.ClientIP())

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error("upstream request failed", zap.String("target", targetURL), zap.Error(err))
		middleware.RespondWithError(c, http.StatusBadGateway, "Service unavailable")
		return
	}
	defer resp.Body.Close()

	copyHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Warn("copying upstream response failed", zap.Error(err))
	}
}

func (p *Proxy) tooLarge(c *gin.Context) {
	middleware.RespondWithError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", p.maxBodyBytes))
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst.Del(key)
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// RegisterRoutes mirrors the bank service route table. Tokens are checked at
// the edge with the same Authorize policy, so a request that would be refused
// upstream never leaves the gateway.
func RegisterRoutes(router gin.IRouter, tokens middleware.Authenticator, p *Proxy) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "api-gateway"})
	})

	router.POST("/register", p.Forward)
	router.POST("/login", p.Forward)
	router.POST("/admin/login", p.Forward)

	user := router.Group("", middleware.Authorize(tokens, auth.RoleUser))
	{
		user.GET("/profile", p.Forward)
		user.POST("/deposit", p.Forward)
		user.POST("/withdraw", p.Forward)
		user.POST("/transfer", p.Forward)
		user.GET("/transactions", p.Forward)
		user.POST("/request-kyc-update", p.Forward)
		user.POST("/request-update", p.Forward)
	}

	admin := router.Group("/admin", middleware.Authorize(tokens, auth.RoleAdmin))
	{
		admin.GET("/dashboard", p.Forward)
		admin.GET("/users", p.Forward)
		admin.POST("/create-user", p.Forward)
		admin.GET("/users/:id", p.Forward)
		admin.PUT("/users/:id", p.Forward)
		admin.DELETE("/users/:id", p.Forward)
		admin.GET("/users/:id/transactions", p.Forward)
		admin.GET("/kyc-requests", p.Forward)
		admin.POST("/kyc-requests/:id", p.Forward)
		admin.GET("/update-requests", p.Forward)
		admin.POST("/update-requests/:id", p.Forward)
		admin.GET("/documents/:name", p.Forward)
	}
}
