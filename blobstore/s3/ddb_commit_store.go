package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bootphon/h5features-sub000/blobstore"
)

// PointerName is the blob name of a group's commit pointer.
const PointerName = "CURRENT"

// DDBClient is the subset of the DynamoDB API used by DDBCommitStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer committed the
// same pointer version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBCommitStore serves data blobs from S3 and keeps every "<group>/CURRENT"
// pointer as a versioned DynamoDB item. A commit is a conditional put of
// version n+1, so only one of two racing writers succeeds.
//
// Table schema:
//
//	partition key  pointer  (S)  "<baseURI>/<group>/CURRENT"
//	sort key       version  (N)
//	attribute      target   (S)  pointer content
type DDBCommitStore struct {
	*Store
	ddb     DDBClient
	table   string
	baseURI string
}

// NewDDBCommitStore wraps store. baseURI ("s3://bucket/prefix") namespaces
// the pointers of this container inside a shared table.
func NewDDBCommitStore(store *Store, ddb DDBClient, table, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{Store: store, ddb: ddb, table: table, baseURI: baseURI}
}

func isPointer(name string) bool { return path.Base(name) == PointerName }

func (s *DDBCommitStore) pointerKey(name string) string { return s.baseURI + "/" + name }

func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if !isPointer(name) {
		return s.Store.Open(ctx, name)
	}
	version, target, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 || target == "" {
		return nil, blobstore.ErrNotFound
	}
	return blobstore.NewBytesBlob([]byte(target)), nil
}

func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if !isPointer(name) {
		return s.Store.Put(ctx, name, data)
	}
	version, _, err := s.latest(ctx, name)
	if err != nil {
		return err
	}
	return s.commit(ctx, name, version+1, string(data))
}

// Delete of a pointer records an empty target, so the group reads as absent.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if !isPointer(name) {
		return s.Store.Delete(ctx, name)
	}
	version, target, err := s.latest(ctx, name)
	if err != nil || version == 0 || target == "" {
		return err
	}
	return s.commit(ctx, name, version+1, "")
}

// List merges live pointers into the S3 listing.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !isPointer(n) {
			out = append(out, n)
			seen[n] = true
		}
	}
	// pointers live next to their manifests; probe each directory once
	for _, n := range names {
		p := path.Join(path.Dir(n), PointerName)
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, target, err := s.latest(ctx, p); err != nil {
			return nil, err
		} else if target != "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *DDBCommitStore) latest(ctx context.Context, name string) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pointer = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: s.pointerKey(name)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query pointer %s: %w", name, err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}
	item := resp.Items[0]
	v, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", fmt.Errorf("s3: pointer %s: missing version attribute", name)
	}
	version, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: pointer %s: %w", name, err)
	}
	target := ""
	if t, ok := item["target"].(*types.AttributeValueMemberS); ok {
		target = t.Value
	}
	return version, target, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, name string, version uint64, target string) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"pointer": &types.AttributeValueMemberS{Value: s.pointerKey(name)},
			"version": &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"target":  &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit pointer %s: %w", name, err)
	}
	return nil
}
