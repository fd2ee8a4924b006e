package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/photobatch/internal/common"
	"github.com/dmitrijs2005/photobatch/internal/logging"
)

const (
	batchUploadPath = "/photos/upload/batch"
	photoPath       = "/photos/"

	// retryBackoff separates the single automatic retry from the first
	// attempt on transient transport failures.
	retryBackoff = time.Second
)

// HTTPClient implements Client over the photo backend's REST endpoints.
// It owns the batch transfer executor policy: a transfer timeout that scales
// with batch size, byte-level progress reporting, and one automatic retry
// for idempotent-safe failures.
type HTTPClient struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenProvider
	perFileTimeout time.Duration
	maxTimeout     time.Duration
	log            logging.Logger
}

// NewHTTPClient returns a client bound to baseURL. tokens may be the empty
// StaticTokenProvider for anonymous access. perFileTimeout scales the batch
// transfer deadline by file count; maxTimeout caps it.
func NewHTTPClient(baseURL string, tokens TokenProvider, perFileTimeout, maxTimeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		tokens:         tokens,
		perFileTimeout: perFileTimeout,
		maxTimeout:     maxTimeout,
		log:            log,
	}
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// transferTimeout returns the deadline budget for a batch of n files.
// A fixed small timeout would be wrong for a 100-file batch, so the budget
// scales per file and is capped to avoid unbounded waits.
func (c *HTTPClient) transferTimeout(n int) time.Duration {
	timeout := c.perFileTimeout * time.Duration(n)
	if timeout > c.maxTimeout {
		timeout = c.maxTimeout
	}
	return timeout
}

func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	return nil
}

// BatchUpload transmits all parts as one multipart form. The request body is
// assembled once and replayed per attempt; onProgress observes the bytes of
// the attempt currently in flight.
func (c *HTTPClient) BatchUpload(ctx context.Context, parts []FilePart, onProgress ProgressFunc) (*BatchUploadResult, error) {
	if len(parts) == 0 {
		return nil, errors.New("batch upload: empty part list")
	}

	body, contentType, err := encodeMultipart(parts)
	if err != nil {
		return nil, err
	}

	timeout := c.transferTimeout(len(parts))

	var result *BatchUploadResult
	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryBackoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, attemptErr := c.uploadAttempt(attemptCtx, body, contentType, onProgress)
		if attemptErr != nil {
			if retryableTransportError(attemptErr) {
				c.log.Warn(ctx, "batch transfer attempt failed, retrying once", "error", attemptErr)
				return retry.RetryableError(attemptErr)
			}
			return attemptErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch upload: %w", err)
	}
	return result, nil
}

func (c *HTTPClient) uploadAttempt(ctx context.Context, body []byte, contentType string, onProgress ProgressFunc) (*BatchUploadResult, error) {
	reader := newProgressReader(body, onProgress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+batchUploadPath, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Validation rejections are not safe to retry verbatim.
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", common.ErrRejected, resp.Status, strings.TrimSpace(string(b)))
	default:
		return nil, &serverError{status: resp.Status}
	}

	var result BatchUploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return &result, nil
}

// PhotoStatus looks up one photo. A 404 is mapped to common.ErrNotFound: the
// resource has not materialized server-side yet, which the poll monitor
// treats as "keep waiting", not as a failure.
func (c *HTTPClient) PhotoStatus(ctx context.Context, photoID string) (*PhotoStatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+photoPath+photoID, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo status %s: %w", photoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("photo status %s: %w", photoID, common.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo status %s: unexpected status %s", photoID, resp.Status)
	}

	var result PhotoStatusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode photo status: %w", err)
	}
	if result.PhotoID == "" {
		result.PhotoID = photoID
	}
	return &result, nil
}

// encodeMultipart assembles the whole batch body in memory so it can be
// replayed on retry and measured for progress reporting.
func encodeMultipart(parts []FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, part.Name))
		contentType := part.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", part.Name, err)
		}
		if _, err := fw.Write(part.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", part.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type serverError struct {
	status string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %s", e.status)
}

// retryableTransportError classifies failures that are safe to retry once:
// timeouts, connection resets, and transient server errors. Validation
// rejections (ErrRejected) never match.
func retryableTransportError(err error) bool {
	if errors.Is(err, common.ErrRejected) {
		return false
	}

	var srvErr *serverError
	if errors.As(err, &srvErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// progressReader reports cumulative bytes read from the request body.
type progressReader struct {
	r          *bytes.Reader
	total      int64
	sent       int64
	onProgress ProgressFunc
}

func newProgressReader(body []byte, onProgress ProgressFunc) *progressReader {
	return &progressReader{
		r:          bytes.NewReader(body),
		total:      int64(len(body)),
		onProgress: onProgress,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}
