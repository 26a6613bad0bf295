// Package upload runs batch file uploads: sequential in input order, with
// per-file cancellation grouped under a single batch and progress
// callbacks. No retries; a failed file is reported and the batch moves on.
package upload

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imgbed/imgbed/internal/api"
)

// Status is the lifecycle state of one file in a batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Backend is the slice of the API client the uploader needs. *api.Client
// satisfies it.
type Backend interface {
	UploadFile(ctx context.Context, mode api.UploadMode, token, fileName string, content io.Reader) (*api.UploadResult, error)
}

// QuotaRefresher re-fetches the active token's usage snapshot. Satisfied
// by *vault.Store.
type QuotaRefresher interface {
	RefreshInfo(ctx context.Context) (*api.TokenInfo, error)
}

// TokenSource exposes the active bearer token, if any. Satisfied by
// *vault.Store.
type TokenSource interface {
	HasToken() bool
	Token() string
}

// AdminSource reports whether an admin session is live. Satisfied by
// *adminauth.Store.
type AdminSource interface {
	IsAuthenticated() bool
}

// ResolveMode picks the upload mode the way uploads are attributed: an
// active token wins so the upload lands in its album, then an
// authenticated admin session, then anonymous. Either source may be nil.
func ResolveMode(tokens TokenSource, admin AdminSource) (api.UploadMode, string) {
	if tokens != nil && tokens.HasToken() {
		return api.UploadModeToken, tokens.Token()
	}
	if admin != nil && admin.IsAuthenticated() {
		return api.UploadModeAdmin, ""
	}
	return api.UploadModeAnonymous, ""
}

// File is one input to a batch.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Progress is a snapshot of one file's state, delivered to the progress
// callback on every transition and on byte-count updates while uploading.
type Progress struct {
	FileID    string
	FileName  string
	Index     int
	Total     int
	Status    Status
	BytesSent int64
	SizeBytes int64
	Err       error
}

// Result is the final outcome of one file.
type Result struct {
	FileID   string
	FileName string
	Status   Status
	Upload   *api.UploadResult
	Err      error
}

type batchFile struct {
	id      string
	name    string
	size    int64
	content io.Reader

	status Status
	sent   int64
	result *api.UploadResult
	err    error

	canceled bool
	cancel   context.CancelFunc
}

// Batch uploads a fixed list of files. Construct with NewBatch, start with
// Run; CancelFile and CancelAll are safe from other goroutines while Run
// is in flight.
type Batch struct {
	mu        sync.Mutex
	backend   Backend
	files     []*batchFile
	mode      api.UploadMode
	token     string
	refresher QuotaRefresher
	progress  func(Progress)
	logger    zerolog.Logger
	cancelAll context.CancelFunc
}

// Option configures a Batch.
type Option func(*Batch)

// WithMode fixes the upload mode and bearer token instead of the
// anonymous default. Pair with ResolveMode for auto-detection.
func WithMode(mode api.UploadMode, token string) Option {
	return func(b *Batch) {
		b.mode = mode
		b.token = token
	}
}

// WithProgress registers a progress callback. It is invoked synchronously
// from the uploading goroutine and must not block.
func WithProgress(fn func(Progress)) Option {
	return func(b *Batch) { b.progress = fn }
}

// WithQuotaRefresher refreshes the token's usage snapshot after a token-
// mode batch with at least one success.
func WithQuotaRefresher(r QuotaRefresher) Option {
	return func(b *Batch) { b.refresher = r }
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Batch) { b.logger = logger }
}

// NewBatch builds a batch over the given files. Order is preserved.
func NewBatch(backend Backend, files []File, opts ...Option) *Batch {
	b := &Batch{
		backend: backend,
		mode:    api.UploadModeAnonymous,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, f := range files {
		b.files = append(b.files, &batchFile{
			id:      uuid.NewString(),
			name:    f.Name,
			size:    f.Size,
			content: f.Content,
			status:  StatusPending,
		})
	}
	return b
}

// FileIDs returns the batch's file IDs in input order, for use with
// CancelFile.
func (b *Batch) FileIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, len(b.files))
	for i, f := range b.files {
		ids[i] = f.id
	}
	return ids
}

// CancelFile aborts one file: in flight it is interrupted, pending it is
// skipped. Finished files are unaffected.
func (b *Batch) CancelFile(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.files {
		if f.id != id {
			continue
		}
		if f.status == StatusPending || f.status == StatusUploading {
			f.canceled = true
			if f.cancel != nil {
				f.cancel()
			}
		}
		return
	}
}

// CancelAll aborts the in-flight file and skips everything still pending.
func (b *Batch) CancelAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.files {
		if f.status == StatusPending || f.status == StatusUploading {
			f.canceled = true
		}
	}
	if b.cancelAll != nil {
		b.cancelAll()
	}
}

// Run uploads the files one at a time in input order and returns per-file
// results. A failure marks that file and continues; cancellation of the
// passed context stops the batch.
func (b *Batch) Run(ctx context.Context) []Result {
	batchCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancelAll = cancel
	files := b.files
	total := len(files)
	b.mu.Unlock()
	defer cancel()

	succeeded := 0
	for i, f := range files {
		b.mu.Lock()
		if f.canceled || batchCtx.Err() != nil {
			f.status = StatusCanceled
			b.mu.Unlock()
			b.report(f, i, total)
			continue
		}
		fileCtx, fileCancel := context.WithCancel(batchCtx)
		f.cancel = fileCancel
		f.status = StatusUploading
		b.mu.Unlock()
		b.report(f, i, total)

		reader := &progressReader{
			r: f.content,
			onRead: func(n int64) {
				b.mu.Lock()
				f.sent = n
				b.mu.Unlock()
				b.report(f, i, total)
			},
		}
		result, err := b.backend.UploadFile(fileCtx, b.mode, b.token, f.name, reader)
		fileCancel()

		b.mu.Lock()
		switch {
		case err == nil:
			f.status = StatusDone
			f.result = result
			succeeded++
		case f.canceled || errors.Is(err, context.Canceled):
			f.status = StatusCanceled
			f.err = err
		default:
			f.status = StatusFailed
			f.err = err
			b.logger.Warn().Err(err).Str("file", f.name).Msg("upload failed")
		}
		b.mu.Unlock()
		b.report(f, i, total)
	}

	if b.mode == api.UploadModeToken && succeeded > 0 && b.refresher != nil {
		// Quota changed server-side; refresh is best effort.
		if _, err := b.refresher.RefreshInfo(ctx); err != nil {
			b.logger.Debug().Err(err).Msg("quota refresh after upload failed")
		}
	}

	return b.Results()
}

// Results returns the current per-file outcomes in input order.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Result, len(b.files))
	for i, f := range b.files {
		out[i] = Result{
			FileID:   f.id,
			FileName: f.name,
			Status:   f.status,
			Upload:   f.result,
			Err:      f.err,
		}
	}
	return out
}

func (b *Batch) report(f *batchFile, index, total int) {
	if b.progress == nil {
		return
	}
	b.mu.Lock()
	p := Progress{
		FileID:    f.id,
		FileName:  f.name,
		Index:     index,
		Total:     total,
		Status:    f.status,
		BytesSent: f.sent,
		SizeBytes: f.size,
		Err:       f.err,
	}
	b.mu.Unlock()
	b.progress(p)
}

// progressReader counts bytes as the multipart writer drains the file.
type progressReader struct {
	r      io.Reader
	total  int64
	onRead func(total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.total += int64(n)
		p.onRead(p.total)
	}
	return n, err
}
