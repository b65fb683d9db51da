package handler

import (
	"context"
	"errors"
	"html/template"
	"mime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webcamupload/internal/auth"
	"webcamupload/internal/payload"
	"webcamupload/internal/service"
	"webcamupload/internal/storage"
)

const probeTimeout = 2 * time.Second

// Probe is one readiness dependency checked by /health.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, authn *auth.Authenticator, svc service.IngestService, probes ...Probe) {
	app.Get("/", Index(svc))
	app.Get("/health", HealthCheck(probes...))
	app.Get("/healthz", LivenessProbe())

	app.Post("/api/webcamupload", UploadImage(authn, svc))
	app.Get("/api/webcamupload/latest", LatestImage(svc))
	app.Get("/api/webcamupload/captures", RequireBasic(authn), ListCaptures(svc))
}

// RegisterMetrics exposes g on /metrics in the Prometheus text format.
func RegisterMetrics(app *fiber.App, g prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterImages serves stored images under /images from dir. Dot-prefixed
// names, including in-flight .upload-*.tmp files, are never served.
func RegisterImages(app *fiber.App, dir string) {
	app.Static("/images", dir, fiber.Static{
		Next: func(c *fiber.Ctx) bool {
			// decoded path, as resolved by the file server
			return hasHiddenSegment(string(c.Context().URI().Path()))
		},
	})
}

func hasHiddenSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// RequireBasic rejects requests that do not carry the configured Basic credentials.
func RequireBasic(authn *auth.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authn.Authenticate(c.Get(fiber.HeaderAuthorization)) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// UploadImage accepts a raw PNG body from the webcam.
// @Summary Upload a webcam frame
// @Accept octet-stream
// @Param Authorization header string true "Basic credentials"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/webcamupload [post]
func UploadImage(authn *auth.Authenticator, svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authn.Authenticate(c.Get(fiber.HeaderAuthorization)) {
			return unauthorized(c)
		}
		if !acceptedUploadType(c.Get(fiber.HeaderContentType)) {
			return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "body must be sent as application/octet-stream")
		}

		_, err := svc.Ingest(c.UserContext(), c.Body())
		switch {
		case err == nil:
			return c.SendStatus(fiber.StatusNoContent)
		case errors.Is(err, payload.ErrTooLarge):
			return writeError(c, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds the upload limit")
		case errors.Is(err, payload.ErrFormatInvalid):
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAYLOAD", "body must be a png image")
		default:
			return writeError(c, fiber.StatusInternalServerError, "STORAGE_FAILURE", "image could not be stored")
		}
	}
}

// acceptedUploadType allows a missing Content-Type, octet-stream and image/png.
func acceptedUploadType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case fiber.MIMEOctetStream, "image/png":
		return true
	default:
		return false
	}
}

type latestResponse struct {
	URL string `json:"url"`
}

// LatestImage returns the URL of the most recent image.
// @Summary Latest webcam frame URL
// @Produce json
// @Success 200 {object} latestResponse
// @Failure 404 {object} errorPayload
// @Router /api/webcamupload/latest [get]
func LatestImage(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url, err := svc.Latest(c.UserContext())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no image has been uploaded yet")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(latestResponse{URL: url})
	}
}

// ListCaptures lists recorded uploads, newest first.
// @Summary Capture history
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} service.CaptureListResult
// @Failure 503 {object} errorPayload
// @Router /api/webcamupload/captures [get]
func ListCaptures(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		offset := c.QueryInt("offset", 0)
		if limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		if offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.History(c.UserContext(), limit, offset)
		if err != nil {
			if errors.Is(err, service.ErrHistoryDisabled) {
				return writeError(c, fiber.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "capture history is not configured")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="30" />
  <title>Webcam</title>
</head>
<body>
{{- if .URL }}
  <img src="{{ .URL }}" alt="Latest webcam image" />
{{- else }}
  <p>{{ .Message }}</p>
{{- end }}
</body>
</html>`))

// Index renders a page embedding the latest image.
func Index(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := struct{ URL, Message string }{}
		url, err := svc.Latest(c.UserContext())
		switch {
		case err == nil:
			data.URL = url
		case errors.Is(err, storage.ErrNotFound):
			data.Message = "No image has been uploaded yet."
		default:
			c.Status(fiber.StatusInternalServerError)
			data.Message = "The image library is currently unavailable."
		}

		var sb strings.Builder
		if err := indexTemplate.Execute(&sb, data); err != nil {
			return err
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Type("html").SendString(sb.String())
	}
}

// HealthCheck reports ready only when every probe passes within probeTimeout.
func HealthCheck(probes ...Probe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
		defer cancel()

		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", p.Name+" unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
