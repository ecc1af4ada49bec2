package drive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/blob"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// Operation names used for spans, logs and metrics.
const (
	OpGetFolder          = "getFolder"
	OpGetFile            = "getFile"
	OpListFolderContents = "listFolderContents"
	OpGetBreadcrumbs     = "getBreadcrumbs"
	OpNavigate           = "navigate"
	OpCreateFolder       = "createFolder"
	OpRenameFolder       = "renameFolder"
	OpRenameFile         = "renameFile"
	OpMoveFolder         = "moveFolder"
	OpMoveFile           = "moveFile"
	OpDeleteFolder       = "deleteFolder"
	OpDeleteFile         = "deleteFile"
	OpGetSharedFile      = "getSharedFile"
	OpUpload             = "upload"
)

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "ok"

// Metrics records drive service activity. A nil Metrics disables recording.
type Metrics interface {
	// ObserveOperation records one service call and its outcome
	// (OutcomeOK or an error code name).
	ObserveOperation(operation, outcome string, duration time.Duration)

	// UploadStarted is called when an upload task begins transferring.
	UploadStarted()

	// UploadFinished is called once per task with its outcome and the
	// number of bytes stored.
	UploadFinished(outcome string, bytes int64, duration time.Duration)

	// ShareCacheLookup records whether a share lookup was served from cache.
	ShareCacheLookup(hit bool)
}

// Options configures a Service.
type Options struct {
	// Blobs stores file contents. Required for uploads; when nil, deletes
	// skip blob cleanup.
	Blobs blob.Store

	// SharePolicy decides whether a shared file may be served.
	// Default: AllowAll.
	SharePolicy SharePolicy

	// ShareCacheSize bounds the share lookup cache. Zero disables caching.
	ShareCacheSize int64

	// ShareCacheTTL is how long a share lookup stays cached.
	// Default: 1 minute.
	ShareCacheTTL time.Duration

	// BlobTimeout bounds best-effort blob deletes after a commit.
	// Default: 30 seconds.
	BlobTimeout time.Duration

	// Metrics records operation outcomes. May be nil.
	Metrics Metrics
}

// Service is the tree mutator. It owns no state besides the caches; every
// mutation runs inside a store transaction.
//
// Usage:
//
//	svc := drive.New(store, drive.Options{Blobs: blobs})
//	folder, err := svc.CreateFolder(ctx, "Work", drive.RootFolderID, userID)
//	crumbs, err := svc.GetBreadcrumbs(ctx, folder.ID)
type Service struct {
	store       Store
	blobs       blob.Store
	policy      SharePolicy
	shareCache  *ccache.Cache
	shareTTL    time.Duration
	shareMu     sync.Mutex
	shareGen    atomic.Uint64
	blobTimeout time.Duration
	metrics     Metrics
}

// New creates a Service over store.
func New(store Store, opts Options) *Service {
	if opts.SharePolicy == nil {
		opts.SharePolicy = AllowAll
	}
	if opts.ShareCacheTTL <= 0 {
		opts.ShareCacheTTL = time.Minute
	}
	if opts.BlobTimeout <= 0 {
		opts.BlobTimeout = 30 * time.Second
	}

	s := &Service{
		store:       store,
		blobs:       opts.Blobs,
		policy:      opts.SharePolicy,
		shareTTL:    opts.ShareCacheTTL,
		blobTimeout: opts.BlobTimeout,
		metrics:     opts.Metrics,
	}

	if opts.ShareCacheSize > 0 {
		prune := uint32(opts.ShareCacheSize >> 3)
		if prune == 0 {
			prune = 1
		}
		s.shareCache = ccache.New(ccache.Configure().MaxSize(opts.ShareCacheSize).ItemsToPrune(prune))
	}

	return s
}

// Store returns the underlying metadata store.
func (s *Service) Store() Store {
	return s.store
}

// Healthcheck checks the metadata store and, when configured, the blob store.
func (s *Service) Healthcheck(ctx context.Context) error {
	if err := s.store.Healthcheck(ctx); err != nil {
		return err
	}
	if s.blobs != nil {
		if err := s.blobs.Healthcheck(ctx); err != nil {
			return drerrors.NewUpstreamError("blob healthcheck", err)
		}
	}
	return nil
}

// Close stops background cache workers. It does not close the stores.
func (s *Service) Close() {
	if s.shareCache != nil {
		s.shareCache.Stop()
	}
}

// finish records the outcome of an operation on the span, in metrics, and
// in the log when it failed with something other than a caller error.
func (s *Service) finish(ctx context.Context, op string, start time.Time, err error) {
	outcome := outcomeOf(err)

	if s.metrics != nil {
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
	}

	if err == nil {
		return
	}

	telemetry.SetAttributes(ctx, telemetry.ErrorCode(outcome))
	telemetry.RecordError(ctx, err)

	// CorruptHierarchy is logged where it is detected, with the ids involved.
	if code, isDrive := drerrors.CodeOf(err); !isDrive || code == drerrors.ErrUpstreamFailure {
		logger.WarnCtx(ctx, "Drive operation failed",
			logger.KeyOperation, op,
			logger.KeyErrorCode, outcome,
			logger.KeyError, err)
		return
	}

	logger.DebugCtx(ctx, "Drive operation rejected",
		logger.KeyOperation, op,
		logger.KeyErrorCode, outcome,
		logger.KeyError, err)
}

// outcomeOf returns the metric label for err.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code, ok := drerrors.CodeOf(err); ok {
		return code.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Canceled"
	}
	return "Internal"
}

// deleteBlobs removes blobs after their records are gone. Failures are
// logged; the metadata delete has already committed.
func (s *Service) deleteBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.blobTimeout)
	defer cancel()

	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			logger.WarnCtx(ctx, "Failed to delete blob",
				logger.KeyBlobKey, key,
				logger.KeyError, err)
		}
	}
}

// validateName trims name and rejects empty results.
func validateName(name string) (string, error) {
	trimmed := NormalizeName(name)
	if trimmed == "" {
		return "", drerrors.NewInvalidNameError(name)
	}
	return trimmed, nil
}
