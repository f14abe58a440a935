// Package blobstore provides pluggable storage backends for persisted
// diffraction libraries.
//
// The local and memory stores live in this package; S3 and MinIO backends
// live in the s3 and minio subpackages so their SDKs stay out of the
// dependency graph of users who do not need them.
package blobstore
