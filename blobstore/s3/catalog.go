package s3

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/templix/blobstore"
)

// ErrConcurrentModification is returned when a concurrent publish is
// detected for the same library name and version.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// ErrLibraryNotFound is returned when a catalog holds no entry for the
// requested library name.
var ErrLibraryNotFound = errors.New("library not found in catalog")

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CatalogEntry is one published library snapshot.
type CatalogEntry struct {
	// Library is the catalog key (e.g. "gan-polytypes").
	Library string
	// Version is the monotonically increasing publish version.
	Version int64
	// SnapshotKey is the blob name of the snapshot in the S3 store.
	SnapshotKey string
	// Phases lists the phase labels contained in the snapshot, in
	// library order.
	Phases []string
}

// Catalog publishes library snapshots to S3 and records them in a DynamoDB
// table, using conditional writes so concurrent publishers are detected
// instead of silently overwriting each other.
//
// Table schema:
//   - Partition key: library (string)
//   - Sort key: version (number)
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name templix-libraries \
//	  --attribute-definitions AttributeName=library,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=library,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Catalog struct {
	store     blobstore.BlobStore
	ddbClient DDBClient
	tableName string
}

// NewCatalog creates a catalog over the given blob store and DynamoDB table.
func NewCatalog(store blobstore.BlobStore, ddbClient DDBClient, tableName string) *Catalog {
	return &Catalog{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
	}
}

// Publish uploads snapshot bytes and registers them as the next version of
// the named library. If another publisher registered the same version
// concurrently, ErrConcurrentModification is returned and the caller should
// re-read Latest and retry.
func (c *Catalog) Publish(ctx context.Context, library string, phases []string, snapshot []byte) (CatalogEntry, error) {
	if library == "" {
		return CatalogEntry{}, errors.New("empty library name")
	}

	latest, err := c.Latest(ctx, library)
	if err != nil && !errors.Is(err, ErrLibraryNotFound) {
		return CatalogEntry{}, err
	}
	version := latest.Version + 1

	// The key carries a per-attempt nonce so a publisher that loses the
	// version race never collides with the winner's payload.
	nonce, err := publishNonce()
	if err != nil {
		return CatalogEntry{}, err
	}

	entry := CatalogEntry{
		Library:     library,
		Version:     version,
		SnapshotKey: fmt.Sprintf("%s/v%06d-%s.tmx", library, version, nonce),
		Phases:      phases,
	}

	if err := c.store.Put(ctx, entry.SnapshotKey, snapshot); err != nil {
		return CatalogEntry{}, fmt.Errorf("upload snapshot: %w", err)
	}

	item := map[string]ddbtypes.AttributeValue{
		"library":      &ddbtypes.AttributeValueMemberS{Value: entry.Library},
		"version":      &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(entry.Version, 10)},
		"snapshot_key": &ddbtypes.AttributeValueMemberS{Value: entry.SnapshotKey},
	}
	if len(phases) > 0 {
		var list []ddbtypes.AttributeValue
		for _, p := range phases {
			list = append(list, &ddbtypes.AttributeValueMemberS{Value: p})
		}
		item["phases"] = &ddbtypes.AttributeValueMemberL{Value: list}
	}

	_, err = c.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		// The payload is orphaned on a lost race; best effort cleanup.
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			_ = c.store.Delete(ctx, entry.SnapshotKey)
			return CatalogEntry{}, ErrConcurrentModification
		}
		return CatalogEntry{}, err
	}

	return entry, nil
}

// Latest returns the most recently published entry for the library.
func (c *Catalog) Latest(ctx context.Context, library string) (CatalogEntry, error) {
	out, err := c.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("library = :lib"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":lib": &ddbtypes.AttributeValueMemberS{Value: library},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return CatalogEntry{}, err
	}
	if len(out.Items) == 0 {
		return CatalogEntry{}, fmt.Errorf("%w: %q", ErrLibraryNotFound, library)
	}
	return entryFromItem(out.Items[0])
}

// Fetch downloads the snapshot bytes for a catalog entry.
func (c *Catalog) Fetch(ctx context.Context, entry CatalogEntry) ([]byte, error) {
	return blobstore.ReadAll(ctx, c.store, entry.SnapshotKey)
}

// Delete removes a published version, payload included. The latest version
// of a library should normally be kept; this exists for retention cleanup
// of superseded versions.
func (c *Catalog) Delete(ctx context.Context, entry CatalogEntry) error {
	_, err := c.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"library": &ddbtypes.AttributeValueMemberS{Value: entry.Library},
			"version": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(entry.Version, 10)},
		},
	})
	if err != nil {
		return err
	}
	return c.store.Delete(ctx, entry.SnapshotKey)
}

func publishNonce() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate publish nonce: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func entryFromItem(item map[string]ddbtypes.AttributeValue) (CatalogEntry, error) {
	var entry CatalogEntry

	lib, ok := item["library"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return entry, errors.New("catalog item missing library attribute")
	}
	entry.Library = lib.Value

	ver, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return entry, errors.New("catalog item missing version attribute")
	}
	v, err := strconv.ParseInt(ver.Value, 10, 64)
	if err != nil {
		return entry, fmt.Errorf("invalid version attribute: %w", err)
	}
	entry.Version = v

	if key, ok := item["snapshot_key"].(*ddbtypes.AttributeValueMemberS); ok {
		entry.SnapshotKey = key.Value
	}
	if phases, ok := item["phases"].(*ddbtypes.AttributeValueMemberL); ok {
		for _, av := range phases.Value {
			if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
				entry.Phases = append(entry.Phases, s.Value)
			}
		}
	}
	return entry, nil
}
