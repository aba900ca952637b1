// Package s3 stores operator artifacts in S3-compatible object storage such
// as Hetzner Object Storage.
//
// The operator uses it to archive one compressed report per refresh run. The
// noderefreshctl CLI reads the same objects back.
package s3
