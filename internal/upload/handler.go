package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"docudrop-backend/internal/config"
	"docudrop-backend/internal/fileprep"
	"docudrop-backend/internal/providers/dropbox"
	"docudrop-backend/internal/tracker"
	"docudrop-backend/pkg/models"
)

// Handler handles document upload HTTP requests.
type Handler struct {
	service *Service
	tracker *tracker.Tracker
	cfg     *config.Config
	logger  *zap.SugaredLogger
}

// NewHandler creates a new Handler instance.
func NewHandler(service *Service, tr *tracker.Tracker, cfg *config.Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{service: service, tracker: tr, cfg: cfg, logger: logger}
}

// RegisterRoutes registers upload routes with the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/upload", h.Upload)
}

// Upload handles POST /upload.
func (h *Handler) Upload(c echo.Context) error {
	clientID := clientIdentifier(c)

	if h.tracker.HasExceededLimit(clientID) {
		h.tracker.AddUpload(clientID, "", "", models.UploadFailed, "Límite de subidas excedido")
		return c.JSON(http.StatusTooManyRequests, Response{
			Success:       false,
			Message:       fmt.Sprintf("Has excedido el límite de %d subidas por hora.", tracker.MaxUploadsPerHour),
			RecentUploads: h.tracker.GetRecentUploads(clientID, 0),
		})
	}

	sub := Submission{
		FullName: c.FormValue("nombreCompleto"),
		DNI:      c.FormValue("dni"),
		Email:    c.FormValue("correo"),
	}
	if sub.FullName == "" || sub.DNI == "" || sub.Email == "" {
		return h.badRequest(c, clientID, "Faltan campos requeridos")
	}

	files, err := h.readFiles(c)
	if err != nil {
		return h.badRequest(c, clientID, err.Error())
	}
	if len(files) > h.cfg.MaxFilesPerRequest {
		return h.badRequest(c, clientID,
			fmt.Sprintf("Demasiados archivos: máximo %d por solicitud", h.cfg.MaxFilesPerRequest))
	}

	if err := h.service.ValidateFiles(files); err != nil {
		switch {
		case errors.Is(err, fileprep.ErrUnsupportedType):
			return h.badRequest(c, clientID, "Tipo de archivo no permitido")
		case errors.Is(err, fileprep.ErrFileTooLarge):
			return h.badRequest(c, clientID,
				fmt.Sprintf("El archivo supera el tamaño máximo de %d MB", h.cfg.MaxFileSize/(1024*1024)))
		default:
			return h.badRequest(c, clientID, err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.cfg.UploadTimeout)
	defer cancel()

	uploaded, err := h.service.ProcessBatch(ctx, clientID, sub, files)
	if err != nil {
		msg := dropbox.ErrorSummary(err)
		if msg == "" {
			msg = err.Error()
		}
		return c.JSON(http.StatusInternalServerError, Response{
			Success:       false,
			Message:       msg,
			RecentUploads: h.tracker.GetRecentUploads(clientID, 0),
		})
	}

	message := "Archivo subido exitosamente a Dropbox"
	if len(uploaded) > 1 {
		message = fmt.Sprintf("%d archivos subidos exitosamente a Dropbox", len(uploaded))
	}

	return c.JSON(http.StatusOK, Response{
		Success:       true,
		Message:       message,
		Files:         uploaded,
		RecentUploads: h.tracker.GetRecentUploads(clientID, 0),
	})
}

func (h *Handler) badRequest(c echo.Context, clientID, message string) error {
	return c.JSON(http.StatusBadRequest, Response{
		Success:       false,
		Message:       message,
		RecentUploads: h.tracker.GetRecentUploads(clientID, 0),
	})
}

// readFiles extracts the uploaded files from the multipart form. The multi-file
// field "archivos" takes precedence; the legacy single-file field "archivo" is
// still accepted.
func (h *Handler) readFiles(c echo.Context) ([]IncomingFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("Faltan campos requeridos")
	}

	headers := form.File["archivos"]
	if len(headers) == 0 {
		headers = form.File["archivo"]
	}
	if len(headers) == 0 {
		return nil, errors.New("Se requiere al menos un archivo")
	}

	files := make([]IncomingFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("no se pudo leer el archivo %s", fh.Filename)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("no se pudo leer el archivo %s", fh.Filename)
		}
		files = append(files, IncomingFile{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return files, nil
}

// clientIdentifier resolves the client identity for admission control: the
// first hop of X-Forwarded-For when present, otherwise a loopback default.
func clientIdentifier(c echo.Context) string {
	if forwarded := c.Request().Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return "127.0.0.1"
}
