package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	log "github.com/sirupsen/logrus"

	"crypto-export/internal/export"
	"crypto-export/internal/quotes"
	"crypto-export/internal/resolve"
	"crypto-export/internal/store"
	"crypto-export/internal/table"
)

// V1DownloadRequest carries the column flags plus the v1 ticker string,
// which doubles as the secret-equivalent value.
type V1DownloadRequest struct {
	table.ColumnConfig
	Tickers string `query:"tickers"`
}

// V2DownloadRequest adds the explicit secret namespace key.
type V2DownloadRequest struct {
	table.ColumnConfig
	Tickers string `query:"tickers"`
	Secret  string `query:"secret"`
}

func RegisterRoutes(h *server.Hertz, eng *resolve.Engine, svc *quotes.Service, st *store.Store, currency string) {
	root := func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]string{"message": "Hello Crypto-head"})
	}
	h.GET("/", root)
	h.HEAD("/", root)

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/data/download", func(ctx context.Context, c *app.RequestContext) {
		var req V1DownloadRequest
		// Absent or malformed flags coerce to their zero value, not a 400.
		if err := c.BindQuery(&req); err != nil {
			log.WithError(err).Debug("v1 query bind, using defaults")
		}
		tickers := eng.ResolveLegacy(req.Tickers)
		serveDownload(ctx, c, svc, st, tickers, req.ColumnConfig, currency, "crypto_data", "/api/data/download")
	})

	h.GET("/api/v2/data/download", func(ctx context.Context, c *app.RequestContext) {
		var req V2DownloadRequest
		if err := c.BindQuery(&req); err != nil {
			log.WithError(err).Debug("v2 query bind, using defaults")
		}
		tickers, err := eng.Resolve(req.Secret, req.Tickers)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		serveDownload(ctx, c, svc, st, tickers, req.ColumnConfig, currency, "crypto_data_v2", "/api/v2/data/download")
	})

	h.GET("/api/v1/downloads", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store not configured",
			})
			return
		}
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		offset, err := parseOffset(c.Query("offset"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		items, err := st.QueryDownloads(limit, offset)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": items,
		})
	})
}

// serveDownload runs the fetch -> build -> package pipeline and writes the
// zip. Any failure is reported once, here, with the original error's text.
func serveDownload(ctx context.Context, c *app.RequestContext, svc *quotes.Service, st *store.Store, tickers []string, cfg table.ColumnConfig, currency, prefix, endpoint string) {
	assets, err := svc.FetchQuotes(ctx, tickers)
	if err != nil {
		var upstream *quotes.UpstreamError
		if errors.As(err, &upstream) {
			recordDownload(st, endpoint, tickers, 0, "upstream_error", err)
			c.JSON(upstream.StatusCode, map[string]any{
				"ok":    false,
				"error": string(upstream.Payload),
			})
			return
		}
		recordDownload(st, endpoint, tickers, 0, "error", err)
		c.JSON(http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	ds, err := table.Build(assets, cfg, currency)
	if err != nil {
		recordDownload(st, endpoint, tickers, 0, "error", err)
		c.JSON(http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	timestamp := export.Timestamp(time.Now())
	archive, err := export.Package(ds, timestamp)
	if err != nil {
		recordDownload(st, endpoint, tickers, ds.RowCount(), "error", err)
		c.JSON(http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	recordDownload(st, endpoint, tickers, ds.RowCount(), "ok", nil)
	c.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.zip", prefix, timestamp))
	c.Data(http.StatusOK, "application/zip", archive)
}

// recordDownload is best-effort: the audit log never fails a download.
func recordDownload(st *store.Store, endpoint string, tickers []string, rows int, status string, cause error) {
	if st == nil {
		return
	}
	rec := store.DownloadRecord{
		TS:       time.Now().Unix(),
		Endpoint: endpoint,
		Tickers:  strings.Join(tickers, ","),
		RowCount: rows,
		Status:   status,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := st.InsertDownload(rec); err != nil {
		log.WithError(err).Warn("record download failed")
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 200, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if v > 1000 {
		return 1000, nil
	}
	return v, nil
}

func parseOffset(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid offset")
	}
	return v, nil
}
