// Package drivetest runs an in-memory drive backend for tests. It speaks
// the same REST surface as the real service and enforces the same tree
// rules, including rejecting moves that would create a cycle.
package drivetest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Operation keys accepted by FailNext and Calls.
const (
	OpList         = "list"
	OpCreateFolder = "create folder"
	OpDelete       = "delete"
	OpMove         = "move"
	OpUpload       = "upload"
	OpDownload     = "download"
	OpUsage        = "drive info"
)

// Shape selects how listings are wrapped.
type Shape string

const (
	ShapeBare  Shape = "bare"  // [...]
	ShapeData  Shape = "data"  // {"success": true, "data": [...]}
	ShapeItems Shape = "items" // {"items": [...]} with string ids
)

type node struct {
	id       int64
	name     string
	folder   bool
	parent   *int64
	content  []byte
	mime     string
	modified time.Time
}

type failure struct {
	status  int
	message string
}

// MoveCall records one accepted move.
type MoveCall struct {
	ID        int64
	NewParent *int64
}

// Server is a fake drive backend.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nodes     map[int64]*node
	nextID    int64
	shape     Shape
	flatUsage bool
	email     string
	limitGB   float64
	cookie    string
	token     string
	gates     map[string]chan struct{}
	failures  map[string]failure
	calls     map[string]int
	moves     []MoveCall
	clock     time.Time
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		nodes:    make(map[int64]*node),
		nextID:   1,
		shape:    ShapeBare,
		email:    "user@example.com",
		limitGB:  15,
		gates:    make(map[string]chan struct{}),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// APIURL is the value to use as the client's base URL.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	api := r.Group("/api", s.session)
	{
		api.GET("/files", s.handleList)
		api.POST("/files/upload", s.handleUpload)
		api.POST("/files/delete", s.handleDelete)
		api.POST("/files/folders", s.handleCreateFolder)
		api.PUT("/files/move", s.handleMove)
		api.GET("/files/download/:id", s.handleDownload)
		api.POST("/files/download/zip", s.handleZip)
		api.GET("/drive/me", s.handleUsage)
	}

	return r
}

// SetShape changes how listings are wrapped.
func (s *Server) SetShape(shape Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// SetFlatUsage switches /drive/me to the flat {email, usedStorageBytes,
// storageLimitGB} shape.
func (s *Server) SetFlatUsage(flat bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flatUsage = flat
}

// RequireSession rejects requests that do not carry the named cookie.
func (s *Server) RequireSession(cookie, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie, s.token = cookie, token
}

// AddFolder adds a folder under parent (nil for the root) and returns its id.
func (s *Server) AddFolder(name string, parent *int64) int64 {
	return s.add(&node{name: name, folder: true, parent: parent})
}

// AddFile adds a file under parent and returns its id.
func (s *Server) AddFile(name string, parent *int64, content []byte, mimeType string) int64 {
	return s.add(&node{name: name, parent: parent, content: content, mime: mimeType})
}

func (s *Server) add(n *node) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(n)
}

func (s *Server) addLocked(n *node) int64 {
	if n.parent != nil {
		p := *n.parent
		n.parent = &p
	}
	n.id = s.nextID
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	n.modified = s.clock
	s.nodes[n.id] = n
	return n.id
}

// Gate blocks listings of parent until the returned release func is called.
func (s *Server) Gate(parent *int64) (release func()) {
	ch := make(chan struct{})
	key := folderKey(parent)

	s.mu.Lock()
	s.gates[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[key] == ch {
				delete(s.gates, key)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// FailNext makes the next call of op fail with status and message.
func (s *Server) FailNext(op string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status, message: message}
}

// Calls returns how many requests for op reached the backend.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Moves returns every accepted move in order.
func (s *Server) Moves() []MoveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MoveCall(nil), s.moves...)
}

// ParentOf reports the parent of id and whether id exists.
func (s *Server) ParentOf(id int64) (*int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.parent, true
}

// Exists reports whether id is still in the tree.
func (s *Server) Exists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[id]
	return ok
}

// Names returns the sorted child names of parent.
func (s *Server) Names(parent *int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, n := range s.childrenLocked(parent) {
		names = append(names, n.name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) session(c *gin.Context) {
	s.mu.Lock()
	cookie, token := s.cookie, s.token
	s.mu.Unlock()

	if token == "" {
		c.Next()
		return
	}
	if got, err := c.Cookie(cookie); err != nil || got != token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Login required"})
		return
	}
	c.Next()
}

// begin counts the call and reports an injected failure, if any.
func (s *Server) begin(c *gin.Context, op string) bool {
	s.mu.Lock()
	s.calls[op]++
	f, failing := s.failures[op]
	delete(s.failures, op)
	s.mu.Unlock()

	if failing {
		if f.message == "" {
			c.Status(f.status)
			c.Abort()
		} else {
			c.AbortWithStatusJSON(f.status, gin.H{"error": f.message})
		}
		return false
	}
	return true
}

func (s *Server) handleList(c *gin.Context) {
	if !s.begin(c, OpList) {
		return
	}

	var parent *int64
	if raw := c.Query("parentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid parentId"})
			return
		}
		parent = &id
	}

	s.mu.Lock()
	gate := s.gates[folderKey(parent)]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parent != nil {
		if n, ok := s.nodes[*parent]; !ok || !n.folder {
			c.JSON(http.StatusNotFound, gin.H{"message": "Folder not found"})
			return
		}
	}

	children := s.childrenLocked(parent)
	items := make([]gin.H, 0, len(children))
	for _, n := range children {
		items = append(items, s.wireLocked(n))
	}

	switch s.shape {
	case ShapeData:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	case ShapeItems:
		c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
	default:
		c.JSON(http.StatusOK, items)
	}
}

func (s *Server) wireLocked(n *node) gin.H {
	item := gin.H{
		"name":     n.name,
		"modified": n.modified.Format(time.RFC3339),
		"parentId": n.parent,
	}
	if s.shape == ShapeItems {
		item["id"] = strconv.FormatInt(n.id, 10)
	} else {
		item["id"] = n.id
	}
	if n.folder {
		item["fileType"] = "folder"
	} else {
		item["fileType"] = "file"
		item["size"] = len(n.content)
		if n.mime != "" {
			item["mimeType"] = n.mime
		}
	}
	return item
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	if !s.begin(c, OpCreateFolder) {
		return
	}

	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Folder name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isFolderLocked(req.ParentID) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Parent folder not found"})
		return
	}

	n := &node{name: req.Name, folder: true, parent: req.ParentID}
	s.addLocked(n)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": s.wireLocked(n)})
}

func (s *Server) handleDelete(c *gin.Context) {
	if !s.begin(c, OpDelete) {
		return
	}

	var ids []int64
	if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files selected"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		removed += s.removeLocked(id)
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d items deleted", removed)})
}

func (s *Server) removeLocked(id int64) int {
	if _, ok := s.nodes[id]; !ok {
		return 0
	}
	removed := 1
	for _, child := range s.childrenLocked(&id) {
		removed += s.removeLocked(child.id)
	}
	delete(s.nodes, id)
	return removed
}

func (s *Server) handleMove(c *gin.Context) {
	if !s.begin(c, OpMove) {
		return
	}

	var req struct {
		FileID      int64  `json:"fileId"`
		NewParentID *int64 `json:"newParentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid move request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[req.FileID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
		return
	}
	if !s.isFolderLocked(req.NewParentID) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Target folder not found"})
		return
	}
	if req.NewParentID != nil && s.isAncestorLocked(req.FileID, *req.NewParentID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot move a folder into itself or its subfolder"})
		return
	}

	n.parent = req.NewParentID
	s.moves = append(s.moves, MoveCall{ID: req.FileID, NewParent: req.NewParentID})
	c.JSON(http.StatusOK, gin.H{"message": "File moved"})
}

// isAncestorLocked reports whether ancestor is target or one of its ancestors.
func (s *Server) isAncestorLocked(ancestor, target int64) bool {
	for cur := &target; cur != nil; {
		if *cur == ancestor {
			return true
		}
		n, ok := s.nodes[*cur]
		if !ok {
			return false
		}
		cur = n.parent
	}
	return false
}

func (s *Server) handleUpload(c *gin.Context) {
	if !s.begin(c, OpUpload) {
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files uploaded"})
		return
	}

	var parent *int64
	if raw := c.PostForm("parentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid parentId"})
			return
		}
		parent = &id
	}

	type upload struct {
		name    string
		content []byte
		mime    string
	}
	var uploads []upload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		uploads = append(uploads, upload{name: fh.Filename, content: data, mime: http.DetectContentType(data)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isFolderLocked(parent) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Parent folder not found"})
		return
	}
	for _, u := range uploads {
		s.addLocked(&node{name: u.name, parent: parent, content: u.content, mime: u.mime})
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d files uploaded", len(uploads))})
}

func (s *Server) handleDownload(c *gin.Context) {
	if !s.begin(c, OpDownload) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
		return
	}

	if n.folder {
		s.writeZipLocked(c, n.name+".zip", []int64{id})
		return
	}

	mimeType := n.mime
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(n.name))
	c.Data(http.StatusOK, mimeType, n.content)
}

func (s *Server) handleZip(c *gin.Context) {
	if !s.begin(c, OpDownload) {
		return
	}

	var ids []int64
	if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files selected"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeZipLocked(c, "files.zip", ids)
}

func (s *Server) writeZipLocked(c *gin.Context, name string, ids []int64) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		if err := s.zipNodeLocked(zw, "", n); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
	}
	if err := zw.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) zipNodeLocked(zw *zip.Writer, prefix string, n *node) error {
	if n.folder {
		for _, child := range s.childrenLocked(&n.id) {
			if err := s.zipNodeLocked(zw, prefix+n.name+"/", child); err != nil {
				return err
			}
		}
		return nil
	}
	w, err := zw.Create(prefix + n.name)
	if err != nil {
		return err
	}
	_, err = w.Write(n.content)
	return err
}

func (s *Server) handleUsage(c *gin.Context) {
	if !s.begin(c, OpUsage) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var used int64
	for _, n := range s.nodes {
		used += int64(len(n.content))
	}

	if s.flatUsage {
		c.JSON(http.StatusOK, gin.H{"email": s.email, "usedStorageBytes": used, "storageLimitGB": s.limitGB})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"email": s.email, "usedStorage": used, "storageLimit": s.limitGB},
	})
}

func (s *Server) childrenLocked(parent *int64) []*node {
	var out []*node
	for _, n := range s.nodes {
		if sameParent(n.parent, parent) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Server) isFolderLocked(id *int64) bool {
	if id == nil {
		return true
	}
	n, ok := s.nodes[*id]
	return ok && n.folder
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func folderKey(id *int64) string {
	if id == nil {
		return "root"
	}
	return strconv.FormatInt(*id, 10)
}
