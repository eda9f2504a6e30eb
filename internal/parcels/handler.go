package parcels

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/internal/export"
	"land-portal/parcel-portal/parcel-portal-backend/internal/intake"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
)

// maxGeoJSONSize bounds an uploaded boundary document
const maxGeoJSONSize = 5 << 20

type Handler struct {
	session      *draft.Session
	orchestrator *intake.Orchestrator
	hub          *Hub
	clock        clock.Clock
	logger       *zap.Logger
}

func NewHandler(session *draft.Session, orchestrator *intake.Orchestrator, hub *Hub, c clock.Clock, logger *zap.Logger) *Handler {
	return &Handler{
		session:      session,
		orchestrator: orchestrator,
		hub:          hub,
		clock:        c,
		logger:       logger.With(zap.String("component", "parcels_handler")),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	d := rg.Group("/draft")
	{
		d.GET("", h.GetDraft)
		d.PATCH("", h.UpdateFields)
		d.DELETE("", h.Clear)
		d.POST("/sample", h.LoadSample)

		d.PUT("/documents/:kind/text", h.SetDocumentText)
		d.POST("/documents/:kind/file", h.AttachDocument)
		d.DELETE("/documents/:kind/file", h.RemoveDocumentFile)

		d.POST("/supporting/texts", h.AddSupportingText)
		d.PUT("/supporting/texts/:index", h.UpdateSupportingText)
		d.DELETE("/supporting/texts/:index", h.RemoveSupportingText)
		d.POST("/supporting/files", h.AddSupportingFile)
		d.DELETE("/supporting/files/:index", h.RemoveSupportingFile)

		d.POST("/coordinates", h.AddCoordinate)
		d.PATCH("/coordinates/:id", h.UpdateCoordinate)
		d.DELETE("/coordinates/:id", h.RemoveCoordinate)
		d.POST("/coordinates/import", h.ImportCSV)
		d.POST("/coordinates/geojson", h.ImportGeoJSON)

		d.GET("/boundary", h.GetBoundary)
		d.GET("/export/:format", h.Export)

		d.POST("/submit", h.Submit)
		d.GET("/submission", h.GetSubmission)
		d.GET("/submission/ws", h.SubmissionStream)
	}
}

// PublishStatus forwards orchestrator updates to websocket clients
func (h *Handler) PublishStatus(status intake.Status) {
	h.hub.Publish(status)
}

func (h *Handler) GetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.View())
}

func (h *Handler) UpdateFields(c *gin.Context) {
	var req draft.FieldsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.UpdateFields(req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

func (h *Handler) Clear(c *gin.Context) {
	if err := h.session.Clear(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

func (h *Handler) LoadSample(c *gin.Context) {
	if err := h.session.LoadSample(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handler) SetDocumentText(c *gin.Context) {
	kind, ok := h.documentKind(c)
	if !ok {
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.SetDocumentText(kind, req.Text); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

func (h *Handler) AttachDocument(c *gin.Context) {
	kind, ok := h.documentKind(c)
	if !ok {
		return
	}

	name, f, ok := h.formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	att, err := h.session.AttachDocument(kind, name, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *Handler) RemoveDocumentFile(c *gin.Context) {
	kind, ok := h.documentKind(c)
	if !ok {
		return
	}

	if err := h.session.RemoveDocumentFile(kind); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddSupportingText(c *gin.Context) {
	index, err := h.session.AddSupportingText()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": index})
}

func (h *Handler) UpdateSupportingText(c *gin.Context) {
	index, ok := h.index(c)
	if !ok {
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.UpdateSupportingText(index, req.Text); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveSupportingText(c *gin.Context) {
	index, ok := h.index(c)
	if !ok {
		return
	}

	if err := h.session.RemoveSupportingText(index); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddSupportingFile(c *gin.Context) {
	name, f, ok := h.formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	att, err := h.session.AddSupportingFile(name, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *Handler) RemoveSupportingFile(c *gin.Context) {
	index, ok := h.index(c)
	if !ok {
		return
	}

	if err := h.session.RemoveSupportingFile(index); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type coordinateRequest struct {
	BeaconID string `json:"beaconId"`
	Lat      string `json:"lat"`
	Lng      string `json:"lng"`
}

func (h *Handler) AddCoordinate(c *gin.Context) {
	var req coordinateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	coord, err := h.session.AddCoordinate(req.BeaconID, req.Lat, req.Lng)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coord)
}

func (h *Handler) UpdateCoordinate(c *gin.Context) {
	var req draft.CoordinateUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord, err := h.session.UpdateCoordinate(c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coordinate": coord, "errors": h.session.Errors().Entries()})
}

func (h *Handler) RemoveCoordinate(c *gin.Context) {
	if err := h.session.RemoveCoordinate(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ImportCSV(c *gin.Context) {
	mode := h.importMode(c)

	_, f, ok := h.formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	result, err := h.session.ImportCSV(f, mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": result.Accepted, "skipped": result.Skipped, "draft": h.session.View()})
}

func (h *Handler) ImportGeoJSON(c *gin.Context) {
	mode := h.importMode(c)

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxGeoJSONSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	result, err := h.session.ImportGeoJSON(data, mode)
	if errors.Is(err, draft.ErrSessionClosed) {
		h.respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": h.session.Errors().Entries()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": result.Accepted, "draft": h.session.View()})
}

func (h *Handler) GetBoundary(c *gin.Context) {
	c.JSON(http.StatusOK, NewBoundaryView(h.session.Snapshot()))
}

func (h *Handler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := h.session.Snapshot()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, d, h.clock.Now()); err != nil {
		h.logger.Error("Export failed", zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(d.TitleNumber)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) Submit(c *gin.Context) {
	result, err := h.orchestrator.Submit(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch result.Outcome {
	case intake.OutcomeValidationFailure:
		c.JSON(http.StatusUnprocessableEntity, result)
	case intake.OutcomeTransportFailure:
		c.JSON(http.StatusBadGateway, result)
	case intake.OutcomeAbandoned:
		c.JSON(http.StatusServiceUnavailable, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// SubmissionView is the submission status plus the states it may move to next
type SubmissionView struct {
	intake.Status
	AllowedTransitions []string `json:"allowedTransitions"`
}

func (h *Handler) GetSubmission(c *gin.Context) {
	c.JSON(http.StatusOK, SubmissionView{
		Status:             h.orchestrator.Status(),
		AllowedTransitions: h.orchestrator.AllowedTransitions(),
	})
}

func (h *Handler) SubmissionStream(c *gin.Context) {
	initial := Message{
		Type:      MessageTypeSubmissionStatus,
		Data:      h.orchestrator.Status(),
		Timestamp: time.Now(),
	}
	if err := h.hub.ServeWS(c.Writer, c.Request, initial); err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
	}
}

func (h *Handler) documentKind(c *gin.Context) (draft.DocumentKind, bool) {
	kind, ok := draft.ParseDocumentKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown document kind"})
		return "", false
	}
	return kind, true
}

func (h *Handler) index(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return 0, false
	}
	return index, true
}

func (h *Handler) importMode(c *gin.Context) boundary.ImportMode {
	return boundary.ParseImportMode(c.Query("mode"))
}

func (h *Handler) formFile(c *gin.Context) (string, io.ReadCloser, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return "", nil, false
	}
	return file.Filename, f, true
}

// respondError maps domain errors to status codes. Field-scoped failures
// return the current error slots alongside the message.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, draft.ErrSessionClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, draft.ErrCoordinateNotFound), errors.Is(err, draft.ErrIndexOutOfRange):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, intake.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, boundary.ErrNoCoordinates):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": boundary.CSVErrorMessage, "errors": h.session.Errors().Entries()})
	case errors.Is(err, draft.ErrUnsupportedFileType), errors.Is(err, draft.ErrFileTooLarge):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": draft.AttachmentMessage(err), "errors": h.session.Errors().Entries()})
	case errors.Is(err, draft.ErrInvalidCounty), errors.Is(err, draft.ErrInvalidLandUnit):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": h.session.Errors().Entries()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
