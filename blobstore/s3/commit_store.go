package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/hupe1980/bitvec/blobstore"
)

// ErrConcurrentModification is returned when another writer committed the
// same version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// versionSep separates a blob name from its version and writer id in object keys.
const versionSep = "@v"

type commit struct {
	version   uint64
	objectKey string
}

// DDBClient is the subset of the DynamoDB API the commit store uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CommitStore stores every Put as a new immutable S3 object and commits a
// version pointer to DynamoDB with a conditional write. Concurrent writers
// of the same name cannot silently overwrite each other.
//
// Table schema:
//   - Partition key: blob_uri (string) - baseURI + "/" + blob name
//   - Sort key: version (number) - monotonically increasing per blob
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name bitvec-commits \
//	  --attribute-definitions AttributeName=blob_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=blob_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	objects   *Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a new S3+DynamoDB commit store.
// baseURI (e.g. "s3://bucket/prefix") namespaces the partition keys.
func NewCommitStore(objects *Store, ddb DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		objects:   objects,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func (s *CommitStore) uri(name string) string {
	return s.baseURI + "/" + name
}

// objectName carries a random writer id; racing commits of the same version
// never share a key.
func objectName(name string, version uint64) string {
	return fmt.Sprintf("%s%s%020d-%s", name, versionSep, version, uuid.NewString())
}

func (s *CommitStore) key(name string, version uint64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"blob_uri": &types.AttributeValueMemberS{Value: s.uri(name)},
		"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
	}
}

// Open opens the latest committed version of a blob.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	c, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if c.version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return s.objects.Open(ctx, c.objectKey)
}

// OpenVersion opens a specific committed version of a blob.
func (s *CommitStore) OpenVersion(ctx context.Context, name string, version uint64) (blobstore.Blob, error) {
	resp, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(name, version),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get commit record: %w", err)
	}
	if len(resp.Item) == 0 {
		return nil, blobstore.ErrNotFound
	}
	c, err := parseCommit(resp.Item)
	if err != nil {
		return nil, err
	}
	return s.objects.Open(ctx, c.objectKey)
}

// Put uploads data as the next version of name and commits it.
// It returns ErrConcurrentModification if another writer won the race.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.Commit(ctx, name, data)
	return err
}

// Commit is Put that also reports the committed version.
func (s *CommitStore) Commit(ctx context.Context, name string, data []byte) (uint64, error) {
	current, err := s.latest(ctx, name)
	if err != nil {
		return 0, err
	}
	next := current.version + 1
	obj := objectName(name, next)

	if err := s.objects.Put(ctx, obj, data); err != nil {
		return 0, err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"blob_uri":   &types.AttributeValueMemberS{Value: s.uri(name)},
			"version":    &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"object_key": &types.AttributeValueMemberS{Value: obj},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		// The object was never committed; drop it.
		_ = s.objects.Delete(ctx, obj)

		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("s3: commit version to DynamoDB: %w", err)
	}
	return next, nil
}

// LatestVersion returns the latest committed version of name, or 0 if none.
func (s *CommitStore) LatestVersion(ctx context.Context, name string) (uint64, error) {
	c, err := s.latest(ctx, name)
	return c.version, err
}

func (s *CommitStore) latest(ctx context.Context, name string) (commit, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("blob_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.uri(name)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return commit{}, fmt.Errorf("s3: query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return commit{}, nil
	}
	return parseCommit(resp.Items[0])
}

// Versions returns every committed version of name in ascending order.
func (s *CommitStore) Versions(ctx context.Context, name string) ([]uint64, error) {
	commits, err := s.commits(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]uint64, len(commits))
	for i, c := range commits {
		versions[i] = c.version
	}
	return versions, nil
}

func (s *CommitStore) commits(ctx context.Context, name string) ([]commit, error) {
	paginator := dynamodb.NewQueryPaginator(s.ddb, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("blob_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.uri(name)},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	})

	var commits []commit
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: query DynamoDB: %w", err)
		}
		for _, item := range page.Items {
			c, err := parseCommit(item)
			if err != nil {
				return nil, err
			}
			commits = append(commits, c)
		}
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].version < commits[j].version })
	return commits, nil
}

func parseCommit(item map[string]types.AttributeValue) (commit, error) {
	attr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return commit{}, errors.New("s3: invalid version attribute in DynamoDB")
	}
	v, err := strconv.ParseUint(attr.Value, 10, 64)
	if err != nil {
		return commit{}, fmt.Errorf("s3: parse version: %w", err)
	}
	key, ok := item["object_key"].(*types.AttributeValueMemberS)
	if !ok {
		return commit{}, errors.New("s3: invalid object_key attribute in DynamoDB")
	}
	return commit{version: v, objectKey: key.Value}, nil
}

// Delete removes every version of a blob and its commit records.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	commits, err := s.commits(ctx, name)
	if err != nil {
		return err
	}
	for _, c := range commits {
		if err := s.objects.Delete(ctx, c.objectKey); err != nil {
			return err
		}
		_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       s.key(name, c.version),
		})
		if err != nil {
			return fmt.Errorf("s3: delete commit record: %w", err)
		}
	}
	return nil
}

// List returns the names of blobs with at least one stored version.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	objs, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(objs))
	var names []string
	for _, obj := range objs {
		i := strings.LastIndex(obj, versionSep)
		if i < 0 {
			continue
		}
		name := obj[:i]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
