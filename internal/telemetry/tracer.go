package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. HTTP and client keys follow the OpenTelemetry
// semantic conventions.
const (
	// Client attributes
	AttrClientIP = "client.ip"
	AttrUserID   = "enduser.id"

	// HTTP attributes
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
	AttrRequestID  = "http.request.id"

	// Drive attributes
	AttrOperation = "drive.operation"
	AttrFolderID  = "drive.folder_id"
	AttrFileID    = "drive.file_id"
	AttrParentID  = "drive.parent_id"
	AttrName      = "drive.name"
	AttrErrorCode = "drive.error_code"
	AttrFolders   = "drive.folders"
	AttrFiles     = "drive.files"

	// Upload attributes
	AttrUploadID = "upload.id"
	AttrSize     = "upload.size"
	AttrMimeType = "upload.mime_type"

	// Storage backend attributes
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrCacheHit  = "cache.hit"
)

// Span names are <component>.<operation>.
const (
	SpanPrefixDrive  = "drive."
	SpanPrefixBlob   = "blob."
	SpanPrefixUpload = "upload."
	SpanHTTPRequest  = "http.request"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// UserID returns an attribute for the authenticated user
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// HTTPMethod returns an attribute for the request method
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPRoute returns an attribute for the matched route pattern
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// HTTPStatus returns an attribute for the response status code
func HTTPStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, status)
}

// RequestID returns an attribute for the request id
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// FolderID returns an attribute for a folder id
func FolderID(id string) attribute.KeyValue {
	return attribute.String(AttrFolderID, id)
}

// FileID returns an attribute for a file id
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// ParentID returns an attribute for a parent folder id
func ParentID(id string) attribute.KeyValue {
	return attribute.String(AttrParentID, id)
}

// Name returns an attribute for a display name
func Name(name string) attribute.KeyValue {
	return attribute.String(AttrName, name)
}

// ErrorCode returns an attribute for a drive error code
func ErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}

// Folders returns an attribute for a folder count
func Folders(n int) attribute.KeyValue {
	return attribute.Int(AttrFolders, n)
}

// Files returns an attribute for a file count
func Files(n int) attribute.KeyValue {
	return attribute.Int(AttrFiles, n)
}

// UploadID returns an attribute for an upload task id
func UploadID(id string) attribute.KeyValue {
	return attribute.String(AttrUploadID, id)
}

// Size returns an attribute for a payload size
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// MimeType returns an attribute for a payload MIME type
func MimeType(t string) attribute.KeyValue {
	return attribute.String(AttrMimeType, t)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for storage key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// CacheHit returns an attribute for cache hit status
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// StartDriveSpan starts a span for a drive service operation.
func StartDriveSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(AttrOperation, operation))
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanPrefixDrive+operation, trace.WithAttributes(allAttrs...))
}

// StartBlobSpan starts a span for a blob store operation.
func StartBlobSpan(ctx context.Context, operation string, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StorageKey(key),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanPrefixBlob+operation, trace.WithAttributes(allAttrs...))
}

// StartUploadSpan starts the span that covers one upload task.
func StartUploadSpan(ctx context.Context, uploadID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		UploadID(uploadID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanPrefixUpload+"run", trace.WithAttributes(allAttrs...))
}

// StartHTTPSpan starts the root span of an HTTP request.
func StartHTTPSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		HTTPMethod(method),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanHTTPRequest, trace.WithAttributes(allAttrs...), trace.WithSpanKind(trace.SpanKindServer))
}
