// Package drive is the client for the remote drive file API. It issues the
// list, create, delete, move, upload and download calls and normalizes the
// backend's loosely shaped payloads into models.Entry values.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"

	"github.com/ngenohkevin/hivedeck-drive/config"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/metrics"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

const maxErrorBody = 64 * 1024

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Interface("details", keysAndValues).Msg(msg)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	ReadRetries   int
	SessionCookie string
	SessionToken  string
	Logger        *logging.Logger
}

// Client talks to one authenticated drive backend for the whole session.
type Client struct {
	baseURL string
	reads   *http.Client // GET only; may retry
	writes  *http.Client // never retried
	jar     http.CookieJar
	log     *logging.Logger
}

// Ack is the backend's reply to a mutation.
type Ack struct {
	Message string `json:"message,omitempty"`
}

// UploadFile is one file to send in an upload.
type UploadFile struct {
	Name string
	Body io.Reader
}

// Download is a binary response with its suggested filename. The caller
// must close Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// New creates a client. The session credential is seeded into a cookie jar
// so every request carries it implicitly.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid drive base URL %q", opts.BaseURL)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.ReadRetries < 0 {
		opts.ReadRetries = 0
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if opts.SessionToken != "" {
		name := opts.SessionCookie
		if name == "" {
			name = "session"
		}
		jar.SetCookies(base, []*http.Cookie{{Name: name, Value: opts.SessionToken, Path: "/"}})
	}

	log := opts.Logger.Component("drive")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: opts.Timeout, Jar: jar}
	retryClient.RetryMax = opts.ReadRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{log: log}

	return &Client{
		baseURL: base.String(),
		reads:   retryClient.StandardClient(),
		writes:  &http.Client{Timeout: opts.Timeout, Jar: jar},
		jar:     jar,
		log:     log,
	}, nil
}

// NewFromConfig builds a client from validated configuration.
func NewFromConfig(cfg *config.Config, log *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(Options{
		BaseURL:       cfg.DriveAPIURL,
		Timeout:       cfg.DriveTimeout,
		ReadRetries:   cfg.ReadRetries,
		SessionCookie: cfg.SessionCookie,
		SessionToken:  cfg.SessionToken,
		Logger:        log,
	})
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListChildren fetches the children of parent, or of the root when parent is nil.
func (c *Client) ListChildren(ctx context.Context, parent *int64) ([]models.Entry, error) {
	endpoint := c.baseURL + "/files"
	if parent != nil {
		endpoint += "?parentId=" + url.QueryEscape(strconv.FormatInt(*parent, 10))
	}

	body, err := c.getBytes(ctx, OpList, endpoint)
	if err != nil {
		return nil, err
	}

	entries, err := NormalizeEntries(body)
	if err != nil {
		return nil, &RemoteError{Op: OpList, Status: http.StatusOK, Message: "The drive returned an unreadable listing"}
	}

	c.log.Debug().Str("folder", models.FolderLabel(parent)).Int("entries", len(entries)).Msg("listed folder")
	return entries, nil
}

// CreateFolder creates a folder under parent. The returned entry is nil
// when the backend does not echo the created folder.
func (c *Client) CreateFolder(ctx context.Context, name string, parent *int64) (*models.Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid(OpCreateFolder, "Enter a folder name")
	}

	payload := map[string]interface{}{"name": name, "parentId": parent}
	body, err := c.sendJSON(ctx, OpCreateFolder, http.MethodPost, c.baseURL+"/files/folders", payload)
	if err != nil {
		return nil, err
	}

	return createdEntry(body), nil
}

// DeleteEntries deletes the given entries in one batch.
func (c *Client) DeleteEntries(ctx context.Context, ids []int64) (Ack, error) {
	if len(ids) == 0 {
		return Ack{}, Invalid(OpDelete, "Select at least one item to delete")
	}

	body, err := c.sendJSON(ctx, OpDelete, http.MethodPost, c.baseURL+"/files/delete", ids)
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: successMessage(body)}, nil
}

// MoveEntry relocates one entry under newParent (nil for the root).
func (c *Client) MoveEntry(ctx context.Context, id int64, newParent *int64) (Ack, error) {
	payload := map[string]interface{}{"fileId": id, "newParentId": newParent}
	body, err := c.sendJSON(ctx, OpMove, http.MethodPut, c.baseURL+"/files/move", payload)
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: successMessage(body)}, nil
}

// UploadFiles streams files as one multipart request into parent.
func (c *Client) UploadFiles(ctx context.Context, files []UploadFile, parent *int64) (Ack, error) {
	if len(files) == 0 {
		return Ack{}, Invalid(OpUpload, "Select at least one file to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	counter := &countingWriter{}

	go func() {
		err := writeUploadParts(mw, counter, files, parent)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", pr)
	if err != nil {
		pr.Close()
		return Ack{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(c.writes, OpUpload, req)
	if err != nil {
		pr.Close()
		return Ack{}, err
	}
	defer resp.Body.Close()

	metrics.RecordUpload(counter.n.Load())
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return Ack{Message: successMessage(body)}, nil
}

func writeUploadParts(mw *multipart.Writer, tally io.Writer, files []UploadFile, parent *int64) error {
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(io.MultiWriter(part, tally), f.Body); err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if parent != nil {
		return mw.WriteField("parentId", strconv.FormatInt(*parent, 10))
	}
	return nil
}

// DownloadSingle fetches one file. fallback names the file when the
// response carries no filename hint.
func (c *Client) DownloadSingle(ctx context.Context, id int64, fallback string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downloadURL(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(c.reads, OpDownload, req)
	if err != nil {
		return nil, err
	}
	return newDownload(resp, fallback, "download"), nil
}

// DownloadZip fetches the given entries as one zip archive.
func (c *Client) DownloadZip(ctx context.Context, ids []int64) (*Download, error) {
	if len(ids) == 0 {
		return nil, Invalid(OpDownload, "Select at least one item to download")
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/download/zip", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(c.writes, OpDownload, req)
	if err != nil {
		return nil, err
	}
	return newDownload(resp, "", "download.zip"), nil
}

// Thumbnail fetches the content of an image entry, refusing bodies larger
// than maxBytes.
func (c *Client) Thumbnail(ctx context.Context, id int64, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downloadURL(id), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.do(c.reads, OpThumbnail, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, "", Invalid(OpThumbnail, "Image is too large to preview")
	}

	reader := io.Reader(resp.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", &NetworkError{Op: OpThumbnail, Err: err}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", Invalid(OpThumbnail, "Image is too large to preview")
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// Usage fetches drive-wide storage statistics.
func (c *Client) Usage(ctx context.Context) (models.Usage, error) {
	body, err := c.getBytes(ctx, OpUsage, c.baseURL+"/drive/me")
	if err != nil {
		return models.Usage{}, err
	}

	usage, err := NormalizeUsage(body)
	if err != nil {
		return models.Usage{}, &RemoteError{Op: OpUsage, Status: http.StatusOK, Message: "The drive returned unreadable storage details"}
	}
	return usage, nil
}

func (c *Client) downloadURL(id int64) string {
	return c.baseURL + "/files/download/" + strconv.FormatInt(id, 10)
}

func (c *Client) getBytes(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(c.reads, op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return body, nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, endpoint string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(c.writes, op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return body, nil
}

// do executes req and converts transport failures and non-2xx statuses
// into NetworkError and RemoteError. On success the caller owns resp.Body.
func (c *Client) do(client *http.Client, op string, req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		err = &NetworkError{Op: op, Err: err}
		metrics.RecordRemote(op, time.Since(start), err)
		c.log.Warn().Err(err).Str("op", op).Msg("drive request failed")
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := &RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(body)}
		metrics.RecordRemote(op, time.Since(start), rerr)
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Str("message", rerr.Message).Msg("drive rejected request")
		return nil, rerr
	}

	metrics.RecordRemote(op, time.Since(start), nil)
	return resp, nil
}

func newDownload(resp *http.Response, fallback, generic string) *Download {
	name := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = generic
	}

	return &Download{
		Filename:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        &countingBody{ReadCloser: resp.Body},
	}
}

// createdEntry reads the folder echoed by a create call, if any.
func createdEntry(body []byte) *models.Entry {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	fields, err := objectFields(bytes.TrimSpace(body))
	if err != nil {
		return nil
	}
	if data, ok := lookup(fields, "data"); ok && isObject(data) {
		body = data
	}

	entry, ok := normalizeEntry(body)
	if !ok {
		return nil
	}
	return &entry
}

func successMessage(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	if msg := firstString(obj, "message"); msg != "" {
		return msg
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		return firstString(data, "message")
	}
	return ""
}

type countingWriter struct {
	n atomic.Int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n.Add(int64(len(p)))
	return len(p), nil
}

// countingBody records downloaded bytes when closed.
type countingBody struct {
	io.ReadCloser
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *countingBody) Close() error {
	metrics.RecordDownload(b.n)
	return b.ReadCloser.Close()
}
