package logger

import "log/slog"

// Field keys shared by all log statements so that collectors can index them.
const (
	// tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// http
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyRoute     = "route"
	KeyStatus    = "status"
	KeyClientIP  = "client_ip"

	// identity
	KeyUserID = "user_id"
	KeyEmail  = "email"

	// drive tree
	KeyFolderID = "folder_id"
	KeyFileID   = "file_id"
	KeyParentID = "parent_id"
	KeyTargetID = "target_id" // destination folder of a move
	KeyName     = "name"
	KeyDepth    = "depth"
	KeyFolders  = "folders"
	KeyFiles    = "files"

	// uploads and blobs
	KeyUploadID = "upload_id"
	KeyProgress = "progress"
	KeySize     = "size"
	KeyBlobKey  = "blob_key"
	KeyBucket   = "bucket"
	KeyURL      = "url"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
	KeyPath       = "path"
	KeyStoreType  = "store_type" // memory, badger, postgres, fs, s3
	KeyCacheHit   = "cache_hit"
)

// Err returns the error attribute, or an empty attribute for a nil err,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
