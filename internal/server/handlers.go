package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
	"github.com/ngenohkevin/hivedeck-drive/internal/thumbnail"
	"github.com/ngenohkevin/hivedeck-drive/internal/view"
)

const version = "1.0.0"

// Session is the single browsing session the bridge drives.
type Session struct {
	Nav     *navigator.Navigator
	Drag    *dragmove.Controller
	Thumbs  *thumbnail.Loader
	Notices *notify.Queue
}

// Handlers holds all HTTP handlers
type Handlers struct {
	sess *Session
	log  *logging.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(sess *Session, log *logging.Logger) *Handlers {
	return &Handlers{sess: sess, log: log}
}

// writeError maps engine errors onto HTTP statuses.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dragmove.ErrAlreadyInFolder):
		status = http.StatusConflict
	case dragmove.IsCycle(err), drive.IsValidation(err),
		errors.Is(err, dragmove.ErrNotEntryMove), errors.Is(err, dragmove.ErrNoDrag):
		status = http.StatusBadRequest
	case drive.IsRemote(err):
		status = http.StatusBadGateway
	case drive.IsNetwork(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": drive.UserMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// state renders the current snapshot.
func (h *Handlers) state(c *gin.Context) {
	snap := h.sess.Nav.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"snapshot": snap,
		"view":     view.Build(view.Input{Snapshot: snap, Drag: h.sess.Drag.State()}),
		"notices":  h.sess.Notices.Recent(10),
	})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

// GetState handles GET /api/state
func (h *Handlers) GetState(c *gin.Context) {
	h.state(c)
}

// OpenFolder handles POST /api/nav/open/:id
func (h *Handlers) OpenFolder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.sess.Nav.OpenFolderByID(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// JumpToBreadcrumb handles POST /api/nav/breadcrumb/:index
func (h *Handlers) JumpToBreadcrumb(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid index")
		return
	}
	if err := h.sess.Nav.JumpToBreadcrumb(c.Request.Context(), index); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// GoUp handles POST /api/nav/up
func (h *Handlers) GoUp(c *gin.Context) {
	if err := h.sess.Nav.GoToParent(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// GoRoot handles POST /api/nav/root
func (h *Handlers) GoRoot(c *gin.Context) {
	if err := h.sess.Nav.ResetToRoot(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// Refresh handles POST /api/nav/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	if err := h.sess.Nav.Refresh(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// Search handles PUT /api/search
func (h *Handlers) Search(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	h.sess.Nav.SetQuery(req.Query)
	h.state(c)
}

// Sort handles POST /api/sort/:field. An explicit ?order= sets the
// direction, otherwise the column toggles.
func (h *Handlers) Sort(c *gin.Context) {
	field, err := sortutil.ParseField(c.Param("field"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	switch order := sortutil.Order(c.Query("order")); order {
	case "":
		h.sess.Nav.ToggleSort(field)
	case sortutil.Ascending, sortutil.Descending:
		h.sess.Nav.SetSort(sortutil.Spec{Field: field, Order: order})
	default:
		badRequest(c, "order must be asc or desc")
		return
	}
	h.state(c)
}

// SetView handles PUT /api/view/:mode
func (h *Handlers) SetView(c *gin.Context) {
	mode, err := navigator.ParseViewMode(c.Param("mode"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	h.sess.Nav.SetViewMode(mode)
	h.state(c)
}

// ToggleSelection handles POST /api/selection/toggle/:id
func (h *Handlers) ToggleSelection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !h.sess.Nav.Toggle(id) {
		badRequest(c, "item is not in the current view")
		return
	}
	h.state(c)
}

// SelectAll handles POST /api/selection/all
func (h *Handlers) SelectAll(c *gin.Context) {
	h.sess.Nav.SelectAll()
	h.state(c)
}

// SetSelection handles PUT /api/selection
func (h *Handlers) SetSelection(c *gin.Context) {
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	h.sess.Nav.SetAll(req.Checked)
	h.state(c)
}

// CreateFolder handles POST /api/folders
func (h *Handlers) CreateFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	created, err := h.sess.Nav.CreateFolder(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"folder": created})
}

// DeleteSelected handles POST /api/delete
func (h *Handlers) DeleteSelected(c *gin.Context) {
	if err := h.sess.Nav.DeleteSelected(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// Upload handles POST /api/upload. Parts named "files" are streamed to the
// drive; an optional parentId form value overrides the current folder.
func (h *Handlers) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected a multipart form")
		return
	}

	headers := form.File["files"]
	files := make([]drive.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.writeError(c, err)
			return
		}
		defer f.Close()
		files = append(files, drive.UploadFile{Name: fh.Filename, Body: f})
	}

	target := h.sess.Nav.CurrentFolder()
	if v := c.PostForm("parentId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "invalid parentId")
			return
		}
		target = h.sess.Nav.ResolveTarget(id)
	}

	if err := h.sess.Nav.UploadTo(c.Request.Context(), files, target); err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// Download handles GET /api/download by streaming the selection.
func (h *Handlers) Download(c *gin.Context) {
	dl, err := h.sess.Nav.DownloadSelected(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename})

	c.DataFromReader(http.StatusOK, dl.Size, contentType, dl.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// Usage handles GET /api/usage
func (h *Handlers) Usage(c *gin.Context) {
	u, err := h.sess.Nav.Usage(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": u, "line": view.UsageLine(u)})
}

// Thumbnail handles GET /api/thumbnails/:id
func (h *Handlers) Thumbnail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	entry, found := h.sess.Nav.Lookup(id)
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}

	thumb, err := h.sess.Thumbs.Load(c.Request.Context(), entry)
	if errors.Is(err, thumbnail.ErrNotImage) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=600")
	c.Data(http.StatusOK, thumb.ContentType, thumb.Data)
}

// Thumbnails handles GET /api/thumbnails by loading every visible image.
// One failed preview never fails the batch.
func (h *Handlers) Thumbnails(c *gin.Context) {
	results := h.sess.Thumbs.LoadAll(c.Request.Context(), h.sess.Nav.Snapshot().Visible)

	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		item := gin.H{"id": r.EntryID}
		if r.Err != nil {
			item["error"] = drive.UserMessage(r.Err)
		} else {
			item["contentType"] = r.Thumb.ContentType
			item["data"] = r.Thumb.Data
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"thumbnails": out})
}

// DragStart handles POST /api/drag/start. The response carries the encoded
// payload so another tool can hand it back on drop.
func (h *Handlers) DragStart(c *gin.Context) {
	var req struct {
		ID   int64       `json:"id" binding:"required"`
		Kind models.Kind `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: id is required")
		return
	}

	p := h.sess.Drag.DragStart(req.ID, req.Kind)
	encoded, err := p.Encode()
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mime":    dragmove.PayloadMIME,
		"payload": json.RawMessage(encoded),
		"state":   h.sess.Drag.State(),
	})
}

type dragTargetRequest struct {
	Target  *int64          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// payload returns the payload sent by the caller, or the active drag.
func (h *Handlers) payload(req dragTargetRequest) (dragmove.Payload, error) {
	if len(req.Payload) > 0 {
		return dragmove.DecodePayload(req.Payload)
	}
	if p, ok := h.sess.Drag.Current(); ok {
		return p, nil
	}
	return dragmove.Payload{}, dragmove.ErrNoDrag
}

// DragOver handles POST /api/drag/over
func (h *Handlers) DragOver(c *gin.Context) {
	var req dragTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == nil {
		badRequest(c, "Invalid request: target is required")
		return
	}

	p, err := h.payload(req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	accepted := h.sess.Drag.DragOver(p, *req.Target)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": h.sess.Drag.State()})
}

// DragDrop handles POST /api/drag/drop. Without a target the drop lands on
// the list body, i.e. the current folder.
func (h *Handlers) DragDrop(c *gin.Context) {
	var req dragTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	p, err := h.payload(req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if req.Target == nil {
		err = h.sess.Drag.DropOnList(c.Request.Context(), p)
	} else {
		err = h.sess.Drag.Drop(c.Request.Context(), p, *req.Target)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.state(c)
}

// DragEnd handles POST /api/drag/end
func (h *Handlers) DragEnd(c *gin.Context) {
	h.sess.Drag.DragEnd()
	c.JSON(http.StatusOK, gin.H{"state": h.sess.Drag.State()})
}

// Notices handles GET /api/notices. ?drain=true empties the queue.
func (h *Handlers) Notices(c *gin.Context) {
	if c.Query("drain") == "true" {
		c.JSON(http.StatusOK, gin.H{"notices": h.sess.Notices.Drain()})
		return
	}

	n := 20
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		n = parsed
	}
	c.JSON(http.StatusOK, gin.H{"notices": h.sess.Notices.Recent(n)})
}

// Close releases session resources
func (h *Handlers) Close() error {
	h.sess.Thumbs.Close()
	h.sess.Nav.Close()
	return nil
}
