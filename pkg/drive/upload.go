package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

var (
	// ErrUploadsClosed is returned by Start after Close.
	ErrUploadsClosed = errors.New("upload manager is closed")

	// ErrUploadTooLarge is returned when a payload exceeds MaxSize.
	ErrUploadTooLarge = errors.New("upload exceeds the maximum size")

	// ErrUploadRunning is returned when dismissing a task that has not finished.
	ErrUploadRunning = errors.New("upload is still running")

	// ErrNoBlobStore is returned when uploads are started without a blob store.
	ErrNoBlobStore = errors.New("no blob store configured")
)

// UploadConfig configures an UploadManager.
type UploadConfig struct {
	// Timeout bounds one transfer, blob upload and record insert included.
	// Default: 5 minutes.
	Timeout time.Duration

	// CompletedRetention is how long a finished successful task stays
	// listed. Failed tasks stay until dismissed.
	// Default: 5 seconds.
	CompletedRetention time.Duration

	// MaxSize is the largest accepted payload in bytes. Zero means no limit.
	MaxSize int64

	// ProgressBuffer is the capacity of each task's progress channel.
	// Default: 16.
	ProgressBuffer int
}

func (c *UploadConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.CompletedRetention <= 0 {
		c.CompletedRetention = 5 * time.Second
	}
	if c.ProgressBuffer <= 0 {
		c.ProgressBuffer = 16
	}
}

// UploadRequest describes a file to upload.
type UploadRequest struct {
	Name     string
	ParentID string
	OwnerID  string
	MimeType string
	Data     []byte
}

// UploadTask is a point-in-time view of an upload.
type UploadTask struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ParentID    string    `json:"parentId"`
	OwnerID     string    `json:"ownerId"`
	Size        int64     `json:"size"`
	Progress    int       `json:"progress"`
	Error       string    `json:"error,omitempty"`
	IsComplete  bool      `json:"isComplete"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
	File        *File     `json:"file,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	IsCancelled bool      `json:"isCancelled,omitempty"`
}

// Finished reports whether the task completed or failed.
func (t UploadTask) Finished() bool {
	return t.IsComplete || t.Error != ""
}

// Upload is a handle on a running or finished upload task.
type Upload struct {
	mu        sync.Mutex
	task      UploadTask
	progress  chan int
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled atomic.Bool
	file      *File
	err       error
	reported  bool
	finished  bool
}

// ID returns the task id.
func (u *Upload) ID() string {
	return u.task.ID
}

// Progress returns the channel progress percentages are delivered on.
// Values never decrease. When the consumer falls behind, older values are
// dropped in favor of newer ones. The channel is closed when the task
// finishes.
func (u *Upload) Progress() <-chan int {
	return u.progress
}

// Done is closed when the task finishes.
func (u *Upload) Done() <-chan struct{} {
	return u.done
}

// Result waits for the task to finish and returns the created file or the
// failure.
func (u *Upload) Result() (*File, error) {
	<-u.done
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.file.Clone(), u.err
}

// Cancel aborts the transfer. The task fails with UpstreamFailure and no
// file record is created. Cancelling a finished task has no effect.
func (u *Upload) Cancel() {
	u.cancelled.Store(true)
	u.cancel()
}

// Snapshot returns the current state of the task.
func (u *Upload) Snapshot() UploadTask {
	u.mu.Lock()
	defer u.mu.Unlock()
	t := u.task
	t.File = t.File.Clone()
	return t
}

// reportProgress records pct and publishes it without blocking.
func (u *Upload) reportProgress(pct int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.finished || (u.reported && pct <= u.task.Progress) {
		return
	}
	u.reported = true
	u.task.Progress = pct
	u.publish(pct)
}

// publish must be called with u.mu held.
func (u *Upload) publish(pct int) {
	select {
	case u.progress <- pct:
		return
	default:
	}
	// Full: drop the oldest value so the newest one is never lost.
	select {
	case <-u.progress:
	default:
	}
	select {
	case u.progress <- pct:
	default:
	}
}

// finish records the outcome, closes the channels and returns the final
// snapshot.
func (u *Upload) finish(file *File, err error) UploadTask {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.finished = true
	u.file = file
	u.err = err
	u.task.FinishedAt = time.Now().UTC()

	if err != nil {
		u.task.Error = err.Error()
		u.task.ErrorCode = outcomeOf(err)
		u.task.IsCancelled = u.cancelled.Load()
	} else {
		u.task.IsComplete = true
		u.task.File = file.Clone()
		if u.task.Progress < 100 {
			u.task.Progress = 100
			u.publish(100)
		}
	}

	close(u.progress)
	close(u.done)
	u.cancel()
	return u.task
}

// UploadManager runs uploads and keeps their tasks listed.
//
// Each upload runs in its own goroutine with its own context, so uploads
// proceed independently and never hold a store transaction while bytes are
// moving. The file record is inserted only after the blob upload succeeds.
type UploadManager struct {
	svc    *Service
	cfg    UploadConfig
	tasks  *xsync.Map[string, *Upload]
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewUploadManager creates a manager that uploads through svc.
func NewUploadManager(svc *Service, cfg UploadConfig) *UploadManager {
	cfg.applyDefaults()
	return &UploadManager{
		svc:   svc,
		cfg:   cfg,
		tasks: xsync.NewMap[string, *Upload](),
	}
}

// Start validates req and begins the transfer in the background.
//
// The name must be non-empty after trimming and the parent folder must
// exist; these are checked before any bytes move and are returned directly.
// Every later failure is reported through the task.
func (m *UploadManager) Start(ctx context.Context, req UploadRequest) (*Upload, error) {
	if m.svc.blobs == nil {
		return nil, ErrNoBlobStore
	}

	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	if m.cfg.MaxSize > 0 && int64(len(req.Data)) > m.cfg.MaxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrUploadTooLarge, len(req.Data), m.cfg.MaxSize)
	}
	if _, err := m.svc.store.GetFolder(ctx, req.ParentID); err != nil {
		return nil, err
	}
	req.Name = name

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUploadsClosed
	}

	// The transfer outlives the caller's request; keep its values for
	// logging and tracing but not its cancellation.
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	u := &Upload{
		task: UploadTask{
			Name:      name,
			ParentID:  req.ParentID,
			OwnerID:   req.OwnerID,
			Size:      int64(len(req.Data)),
			StartedAt: time.Now().UTC(),
		},
		progress: make(chan int, m.cfg.ProgressBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	u.task.ID = m.register(u)

	m.wg.Add(1)
	go m.run(taskCtx, u, req)

	return u, nil
}

// register stores u under a fresh "<unix-millis>-<name>" id.
func (m *UploadManager) register(u *Upload) string {
	base := fmt.Sprintf("%d-%s", u.task.StartedAt.UnixMilli(), u.task.Name)
	id := base
	for n := 2; ; n++ {
		if _, loaded := m.tasks.LoadOrStore(id, u); !loaded {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (m *UploadManager) run(ctx context.Context, u *Upload, req UploadRequest) {
	defer m.wg.Done()

	ctx, span := telemetry.StartUploadSpan(ctx, u.task.ID,
		telemetry.ParentID(req.ParentID),
		telemetry.Size(int64(len(req.Data))),
		telemetry.MimeType(req.MimeType))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if m.svc.metrics != nil {
		m.svc.metrics.UploadStarted()
	}

	file, err := m.transfer(ctx, u, req)
	task := u.finish(file, err)

	m.svc.finish(ctx, OpUpload, start, err)
	if m.svc.metrics != nil {
		var stored int64
		if file != nil {
			stored = file.Size
		}
		m.svc.metrics.UploadFinished(outcomeOf(err), stored, time.Since(start))
	}

	if err != nil {
		logger.WarnCtx(ctx, "Upload failed",
			logger.KeyUploadID, task.ID,
			logger.KeyName, task.Name,
			logger.KeyError, err)
		return
	}

	logger.InfoCtx(ctx, "Upload complete",
		logger.KeyUploadID, task.ID,
		logger.KeyFileID, file.ID,
		logger.KeySize, file.Size)

	id := task.ID
	time.AfterFunc(m.cfg.CompletedRetention, func() {
		if cur, ok := m.tasks.Load(id); ok && cur == u {
			m.tasks.Delete(id)
		}
	})
}

// transfer uploads the bytes, then inserts the record.
func (m *UploadManager) transfer(ctx context.Context, u *Upload, req UploadRequest) (*File, error) {
	u.reportProgress(0)

	fileID := uuid.New().String()
	key := blobKey(req.OwnerID, fileID, req.Name)

	url, err := m.svc.blobs.Upload(ctx, key, bytes.NewReader(req.Data), int64(len(req.Data)), u.reportProgress)
	if err != nil {
		return nil, drerrors.NewUpstreamError("blob upload", err)
	}
	if err := ctx.Err(); err != nil {
		m.svc.deleteBlobs(ctx, []string{key})
		return nil, drerrors.NewUpstreamError("blob upload", err)
	}

	file := &File{
		ID:        fileID,
		Name:      req.Name,
		ParentID:  req.ParentID,
		OwnerID:   req.OwnerID,
		URL:       url,
		Size:      int64(len(req.Data)),
		MimeType:  req.MimeType,
		BlobKey:   key,
		CreatedAt: time.Now().UTC(),
	}

	err = m.svc.store.WithTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.GetFolder(ctx, req.ParentID); err != nil {
			return err
		}
		return tx.InsertFile(ctx, file)
	})
	if err != nil {
		m.svc.deleteBlobs(ctx, []string{key})
		if ctxErr := ctx.Err(); ctxErr != nil && !drerrors.IsNotFoundError(err) {
			return nil, drerrors.NewUpstreamError("blob upload", ctxErr)
		}
		return nil, err
	}

	return file, nil
}

// blobKey places a blob under its owner and file id. The name is kept for
// readable URLs, with path separators replaced.
func blobKey(ownerID, fileID, name string) string {
	if ownerID == "" {
		ownerID = "anonymous"
	}
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if safe == "." || safe == ".." {
		safe = "_"
	}
	return path.Join(ownerID, fileID, safe)
}

// Get returns the upload with the given id.
func (m *UploadManager) Get(id string) (*Upload, bool) {
	return m.tasks.Load(id)
}

// List returns a snapshot of every listed task, oldest first.
func (m *UploadManager) List() []UploadTask {
	tasks := make([]UploadTask, 0, m.tasks.Size())
	m.tasks.Range(func(_ string, u *Upload) bool {
		tasks = append(tasks, u.Snapshot())
		return true
	})
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartedAt.Equal(tasks[j].StartedAt) {
			return tasks[i].StartedAt.Before(tasks[j].StartedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// ListByOwner returns the listed tasks started by ownerID, oldest first.
func (m *UploadManager) ListByOwner(ownerID string) []UploadTask {
	all := m.List()
	tasks := all[:0]
	for _, t := range all {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Cancel aborts the upload with the given id.
func (m *UploadManager) Cancel(id string) error {
	u, ok := m.tasks.Load(id)
	if !ok {
		return drerrors.NewNotFoundError(id, "upload")
	}
	u.Cancel()
	return nil
}

// Dismiss removes a finished task from the listing.
func (m *UploadManager) Dismiss(id string) error {
	u, ok := m.tasks.Load(id)
	if !ok {
		return drerrors.NewNotFoundError(id, "upload")
	}
	if !u.Snapshot().Finished() {
		return ErrUploadRunning
	}
	m.tasks.Delete(id)
	return nil
}

// Close cancels running uploads and waits for them to finish.
func (m *UploadManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.tasks.Range(func(_ string, u *Upload) bool {
		u.cancel()
		return true
	})
	m.wg.Wait()
}
