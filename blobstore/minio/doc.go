// Package minio provides a BlobStore backend for MinIO and other
// S3-compatible object stores.
//
// Use this backend when snapshots live on a self-hosted MinIO cluster or
// any endpoint speaking the S3 protocol outside AWS. For AWS itself prefer
// the s3 package, which also offers the DynamoDB-backed snapshot catalog.
//
// Example:
//
//	client, err := minio.New("play.min.io", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	store := tmxminio.NewStore(client, "templix", "libraries/")
package minio
