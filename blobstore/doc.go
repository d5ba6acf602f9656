// Package blobstore provides the storage abstraction bit vector payloads are
// persisted through.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral caches
//   - LocalStore: local file system, atomic writes and mmap reads
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with multipart uploads and range reads
//   - s3.CommitStore: S3 objects with DynamoDB version pointers
//
// # Custom Implementations
//
// Implement BlobStore to support other backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Open must return an error matching ErrNotFound for missing blobs.
package blobstore
