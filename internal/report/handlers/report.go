package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"menuiserie-report/internal/common/logging"
	"menuiserie-report/internal/report/models"
	"menuiserie-report/internal/report/renderer"
	"menuiserie-report/internal/report/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Journal ведет учет сформированных отчетов.
type Journal interface {
	Record(ctx context.Context, entry models.ReportEntry) (*models.ReportEntry, error)
	GetByID(ctx context.Context, id string) (*models.ReportEntry, error)
	List(ctx context.Context, limit int) ([]models.ReportEntry, error)
}

// ============================================================
// Report Handler
// ============================================================

type ReportHandler struct {
	renderer *renderer.Renderer
	journal  Journal
	logger   *zap.Logger
}

func NewReportHandler(r *renderer.Renderer, journal Journal, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		renderer: r,
		journal:  journal,
		logger:   logging.OrNop(logger).Named("reports"),
	}
}

type reportRequest struct {
	Data models.Record `json:"data"`
	SVG  string        `json:"svg"`
}

// Generate формирует технический лист и отдает его как PDF для скачивания.
func (h *ReportHandler) Generate(c fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		h.logger.Info("rejected report request", zap.Error(err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	refID := req.Data.RefID()
	filename := ReportFilename(refID)
	entry := models.ReportEntry{
		RefID:    refID,
		Project:  req.Data.ProjectName(),
		Filename: filename,
		Status:   models.StatusOK,
	}

	doc, err := h.renderer.Render(req.Data, req.SVG)
	if err != nil {
		entry.Status = models.StatusFailed
		h.record(context.Background(), entry)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "report generation failed"})
	}

	entry.SizeBytes = doc.Size()
	h.record(context.Background(), entry)

	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.SendStream(doc, int(doc.Size()))
}

// List возвращает последние записи журнала.
func (h *ReportHandler) List(c fiber.Ctx) error {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxListLimit)
	}

	entries, err := h.journal.List(context.Background(), limit)
	if err != nil {
		h.logger.Error("list reports", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list reports"})
	}
	return c.JSON(fiber.Map{"reports": entries})
}

// Get возвращает одну запись журнала.
func (h *ReportHandler) Get(c fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid report id"})
	}

	entry, err := h.journal.GetByID(context.Background(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	if err != nil {
		h.logger.Error("get report", zap.String("id", id), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load report"})
	}
	return c.JSON(entry)
}

// ReportFilename строит имя файла по артикулу изделия.
func ReportFilename(refID string) string {
	safe := strings.Trim(unsafeFilenameChars.ReplaceAllString(refID, "_"), "_")
	if safe == "" {
		safe = models.DefaultRefID
	}
	return "fiche_" + safe + ".pdf"
}

// parseRequest принимает JSON или multipart/form-data с полем "data"
// и необязательным файлом "schematic".
func (h *ReportHandler) parseRequest(c fiber.Ctx) (*reportRequest, error) {
	contentType := c.Get(fiber.HeaderContentType)

	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		data, err := models.ParseRecord([]byte(c.FormValue("data")))
		if err != nil {
			return nil, errors.New("field data must be a JSON object")
		}
		req := &reportRequest{Data: data, SVG: c.FormValue("svg")}

		file, err := c.FormFile("schematic")
		if err != nil {
			return req, nil
		}
		f, err := file.Open()
		if err != nil {
			return nil, errors.New("failed to open schematic")
		}
		defer f.Close()

		raw, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.New("failed to read schematic")
		}
		req.SVG = string(raw)
		return req, nil
	}

	if len(c.Body()) == 0 {
		return nil, errors.New("body required")
	}
	var req reportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return nil, errors.New("invalid JSON payload")
	}
	if req.Data == nil {
		req.Data = models.Record{}
	}
	return &req, nil
}

// record пишет запись в журнал. Ошибки журнала не влияют на ответ.
func (h *ReportHandler) record(ctx context.Context, entry models.ReportEntry) {
	if h.journal == nil {
		return
	}
	saved, err := h.journal.Record(ctx, entry)
	if err != nil {
		h.logger.Warn("journal write failed", zap.String("ref_id", entry.RefID), zap.Error(err))
		return
	}
	h.logger.Info("report generated",
		zap.String("id", saved.ID),
		zap.String("ref_id", saved.RefID),
		zap.String("status", saved.Status),
		zap.Int64("bytes", saved.SizeBytes),
	)
}
