// Package minio stores containers on MinIO or any S3-compatible server
// (Ceph, Garage, SeaweedFS) through the MinIO client, without the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	store := minioblob.NewStore(client, "features", "buckeye/")
//	loc := h5features.Remote(store)
package minio
