// Package s3 provides an AWS S3 BlobStore backend for library snapshots,
// plus a DynamoDB-backed catalog for publishing snapshots atomically.
//
// The plain Store is sufficient for a single writer. When several machines
// build and publish libraries against the same bucket, use CatalogStore:
// DynamoDB conditional writes supply the compare-and-swap semantics S3
// lacks, so concurrent publishers cannot clobber each other.
package s3
