package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// AssetOpener reads stored objects by key.
type AssetOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TokenVerifier checks a capability token against a storage key.
type TokenVerifier interface {
	Verify(token, key string) (string, error)
}

// AssetsHandler serves relayed media through signed capability URLs. This is
// the read side of the URL signer: a URL is only as real as the endpoint
// that honors it.
type AssetsHandler struct {
	provider AssetOpener
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAssetsHandler creates an AssetsHandler.
func NewAssetsHandler(log *slog.Logger, provider AssetOpener, verifier TokenVerifier) *AssetsHandler {
	return &AssetsHandler{
		provider: provider,
		verifier: verifier,
		logger:   log.With(slog.String("handler", "assets")),
	}
}

// Register registers the signed asset route.
func (h *AssetsHandler) Register(e *echo.Echo) {
	e.GET("/assets/:owner/:file", h.Serve)
}

// Serve streams one stored object after validating its capability token.
// Denials are uniform 403s regardless of whether the object exists.
func (h *AssetsHandler) Serve(c echo.Context) error {
	owner := strings.TrimSpace(c.Param("owner"))
	file := strings.TrimSpace(c.Param("file"))
	token := c.QueryParam("token")
	if owner == "" || file == "" || token == "" {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	key := path.Join(owner, file)

	mime, err := h.verifier.Verify(token, key)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}

	reader, err := h.provider.Open(c.Request().Context(), key)
	if err != nil {
		// The token was valid, so the object should exist; a stored-object
		// gap is a server-side contract violation worth logging.
		h.logger.Error("stored object missing for valid token",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusNotFound, "object not found")
	}
	defer reader.Close()

	if strings.TrimSpace(mime) == "" {
		mime = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, mime, reader)
}
