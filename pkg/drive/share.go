package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/telemetry"
)

// SharePolicy decides whether a file may be served to anyone holding its id.
//
// It is the single decision point for shared access: expiry, revocation or
// per-link ACLs plug in here without touching callers. Returning an error
// refuses the share; a *DriveError keeps its code at the API boundary.
type SharePolicy interface {
	Allow(ctx context.Context, file *File) error
}

// SharePolicyFunc adapts a function to SharePolicy.
type SharePolicyFunc func(ctx context.Context, file *File) error

// Allow calls f.
func (f SharePolicyFunc) Allow(ctx context.Context, file *File) error {
	return f(ctx, file)
}

// AllowAll permits every share: knowing the id is the credential.
var AllowAll SharePolicy = SharePolicyFunc(func(context.Context, *File) error { return nil })

// GetSharedFile returns the metadata of a shared file, whoever asks.
//
// The lookup ignores ownership and folder ancestry. A missing id fails with
// NotFound for every caller. The policy is consulted on every call, cached
// or not.
func (s *Service) GetSharedFile(ctx context.Context, fileID string) (file *File, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpGetSharedFile, telemetry.FileID(fileID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpGetSharedFile, start, err) }()

	file, hit := s.cachedShare(fileID)
	span.SetAttributes(telemetry.CacheHit(hit))
	if s.metrics != nil && s.shareCache != nil {
		s.metrics.ShareCacheLookup(hit)
	}

	if !hit {
		gen := s.shareGen.Load()
		file, err = s.store.GetFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		s.cacheShare(fileID, file, gen)
	}

	if err := s.policy.Allow(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *Service) cachedShare(fileID string) (*File, bool) {
	if s.shareCache == nil {
		return nil, false
	}
	item := s.shareCache.Get(fileID)
	if item == nil || item.Expired() {
		return nil, false
	}
	file, ok := item.Value().(*File)
	if !ok {
		return nil, false
	}
	return file.Clone(), true
}

// cacheShare stores a lookup read at generation gen. The record is dropped
// if any invalidation ran since gen, since it may predate that commit.
func (s *Service) cacheShare(fileID string, file *File, gen uint64) {
	if s.shareCache == nil {
		return
	}
	s.shareMu.Lock()
	defer s.shareMu.Unlock()
	if s.shareGen.Load() != gen {
		return
	}
	s.shareCache.Set(fileID, file.Clone(), s.shareTTL)
}

// invalidateShare drops a cached share lookup after the file changed.
func (s *Service) invalidateShare(fileID string) {
	if s.shareCache == nil {
		return
	}
	s.shareMu.Lock()
	defer s.shareMu.Unlock()
	s.shareGen.Add(1)
	s.shareCache.Delete(fileID)
}
