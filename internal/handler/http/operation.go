package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/handler/http/response"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/sse"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/bulk"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/filter"
)

const maxBatchUploadSize = 200 << 20

type OperationHandler interface {
	Extract(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
	BatchUpload(w http.ResponseWriter, r *http.Request)

	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
	Archive(w http.ResponseWriter, r *http.Request)
}

type operationHandlerImpl struct {
	bulkService    *bulk.Service
	registry       *bulk.Registry
	payrollService payroll.PayrollService
	engine         *filter.Engine
	hub            *sse.Hub
	now            func() time.Time
}

func NewOperationHandler(
	bulkService *bulk.Service,
	registry *bulk.Registry,
	payrollService payroll.PayrollService,
	engine *filter.Engine,
	hub *sse.Hub,
) OperationHandler {
	return &operationHandlerImpl{
		bulkService:    bulkService,
		registry:       registry,
		payrollService: payrollService,
		engine:         engine,
		hub:            hub,
		now:            time.Now,
	}
}

// ========== START ==========

func (h *operationHandlerImpl) Extract(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSelection(w, r)
	if !ok {
		return
	}

	op, err := h.bulkService.ExtractAll(r.Context(), chi.URLParam(r, "cycleID"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Extraction started", bulk.ToOperationResponse(op))
}

func (h *operationHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSelection(w, r)
	if !ok {
		return
	}

	op, err := h.bulkService.ExportAll(r.Context(), chi.URLParam(r, "cycleID"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Export started", bulk.ToOperationResponse(op))
}

// BatchUpload takes one multipart file per document. Each part is named
// {record_id}/{document_type}.
func (h *operationHandlerImpl) BatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	var date time.Time
	if value := r.FormValue("date"); value != "" {
		parsed, ok := validator.ParseTimestamp(value)
		if !ok {
			response.HandleError(w, validator.ValidationErrors{{Field: "date", Message: "must be YYYY-MM-DD or an ISO-8601 timestamp"}})
			return
		}
		date = parsed
	}

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var req bulk.BatchUploadRequest
	for _, field := range fields {
		headers := r.MultipartForm.File[field]
		recordID, slot, found := strings.Cut(field, "/")
		if !found {
			response.BadRequest(w, fmt.Sprintf("File field %q must be named record_id/document_type", field), nil)
			return
		}
		for _, fh := range headers {
			content, err := readPart(fh)
			if err != nil {
				response.BadRequest(w, "Failed to read uploaded file", nil)
				return
			}
			req.Items = append(req.Items, bulk.UploadItem{
				RecordID:    recordID,
				Slot:        payroll.DocumentSlot(slot),
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     content,
				Date:        date,
			})
		}
	}

	op, err := h.bulkService.BatchUpload(r.Context(), chi.URLParam(r, "cycleID"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Upload started", bulk.ToOperationResponse(op))
}

// ========== TRACKING ==========

func (h *operationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ops := h.registry.List()
	result := make([]bulk.OperationResponse, len(ops))
	for i, op := range ops {
		result[i] = bulk.ToOperationResponse(op)
	}
	response.Success(w, result)
}

func (h *operationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	op, err := h.registry.Get(chi.URLParam(r, "opID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, op.Report())
}

func (h *operationHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	op, err := h.registry.Get(chi.URLParam(r, "opID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	op.Cancel()
	response.SuccessWithMessage(w, "Cancellation requested", bulk.ToOperationResponse(op))
}

// Events streams progress of an operation. The stream ends with a done
// event carrying the report.
func (h *operationHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	op, err := h.registry.Get(chi.URLParam(r, "opID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cleanup := h.hub.Subscribe(op.ID())
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Current progress first, so late subscribers do not wait for a tick.
	writeEvent(w, bulk.EventProgress, op.Progress())
	flusher.Flush()

	select {
	case <-op.Done():
		writeEvent(w, bulk.EventDone, op.Report())
		flusher.Flush()
		return
	default:
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, event.Event, event.Data)
			flusher.Flush()
			if event.Event == bulk.EventDone {
				return
			}

		case <-op.Done():
			// The done event may have been dropped on a full channel.
			writeEvent(w, bulk.EventDone, op.Report())
			flusher.Flush()
			return

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", h.now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (h *operationHandlerImpl) Archive(w http.ResponseWriter, r *http.Request) {
	op, err := h.registry.Get(chi.URLParam(r, "opID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	archive, err := op.Archive()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "export-"+op.ID()+".zip"))
	if err := archive.WriteZip(w); err != nil {
		slog.Error("Failed to write archive", "operation_id", op.ID(), "error", err)
	}
}

// decodeSelection reads the selection body. Without explicit record IDs,
// the filter query narrows the selection to matching records.
func (h *operationHandlerImpl) decodeSelection(w http.ResponseWriter, r *http.Request) (bulk.SelectionRequest, bool) {
	var req bulk.SelectionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, "Invalid request body", nil)
			return req, false
		}
	}
	if len(req.RecordIDs) > 0 || !hasFilterQuery(r) {
		return req, true
	}

	_, views, err := filteredViews(r, h.payrollService, h.engine, h.now())
	if err != nil {
		response.HandleError(w, err)
		return req, false
	}
	if len(views) == 0 {
		response.HandleError(w, bulk.ErrNothingSelected)
		return req, false
	}
	for _, v := range views {
		req.RecordIDs = append(req.RecordIDs, v.Record.ID)
	}
	return req, true
}

func hasFilterQuery(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("search") != "" || q.Get("categories") != "" || q.Get("obligations") != ""
}

func writeEvent(w io.Writer, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to encode SSE event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
