// Package s3 stores containers in Amazon S3.
//
// Store keeps every blob as an object under a key prefix. S3 overwrites are
// atomic per object, which is all a CURRENT pointer needs with a single
// writer. DDBCommitStore adds DynamoDB conditional writes on top so that two
// writers racing on the same group cannot both commit.
//
//	store, err := s3.New(ctx, "my-bucket", "corpora/buckeye/")
//	loc := h5features.Remote(store)
package s3
