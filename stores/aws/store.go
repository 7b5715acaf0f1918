package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"

	"apparel-studio/core"
	"apparel-studio/stores/record"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	s3Client s3API
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return newStoreWithClient(s3.NewFromConfig(cfg), bucketName)
}

func newStoreWithClient(client s3API, bucketName string) *s3Store {
	return &s3Store{
		s3Client: client,
		bucket:   bucketName,
	}
}

// key builds an object key from plain name segments. Segments that look like
// paths are rejected to prevent traversal.
func key(prefix string, segments ...string) (string, error) {
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid key segment %q: must not be empty or a dot directory", seg)
		}
		if path.Base(seg) != seg {
			return "", fmt.Errorf("invalid key segment %q: must not be a path", seg)
		}
	}
	return path.Join(append([]string{prefix}, segments...)...) + ".json", nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) get(ctx context.Context, objectKey string, v any) error {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to get object %s: %w", objectKey, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", objectKey, err)
	}
	if raw, ok := v.(*[]byte); ok {
		*raw = data
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *s3Store) exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s: %w", objectKey, err)
}

func (s *s3Store) put(ctx context.Context, objectKey string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", objectKey, err)
	}
	return nil
}

// putNew stores data under objectKey unless an object already exists there.
func (s *s3Store) putNew(ctx context.Context, objectKey string, data []byte) error {
	found, err := s.exists(ctx, objectKey)
	if err != nil {
		return err
	}
	if found {
		return core.ErrAlreadyExists
	}
	return s.put(ctx, objectKey, data)
}

// list decodes every object under prefix, skipping unreadable ones.
func list[T any](ctx context.Context, s *s3Store, prefix string) ([]*T, error) {
	out := []*T{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, object := range page.Contents {
			v := new(T)
			if err := s.get(ctx, aws.ToString(object.Key), v); err != nil {
				logrus.WithError(err).WithField("key", aws.ToString(object.Key)).Warn("Failed to read object, skipping")
				continue
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// DesignStore implementation
func (s *s3Store) SaveDesign(ctx context.Context, design *core.SavedDesign) error {
	k, err := key("designs", design.UserID, design.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("failed to marshal design: %w", err)
	}
	if err := s.putNew(ctx, k, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("design %s: %w", design.ID, err)
		}
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": design.ID, "key": k}).Info("Design saved successfully")
	return nil
}

func (s *s3Store) ListDesigns(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	if _, err := key("designs", userID); err != nil {
		return nil, err
	}
	designs, err := list[core.SavedDesign](ctx, s, "designs/"+userID+"/")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(designs, func(i, j int) bool {
		return designs[i].CreatedAt.Before(designs[j].CreatedAt)
	})
	return designs, nil
}

func (s *s3Store) GetDesign(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	k, err := key("designs", userID, id)
	if err != nil {
		return nil, err
	}
	var design core.SavedDesign
	if err := s.get(ctx, k, &design); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("design %s: %w", id, err)
		}
		return nil, err
	}
	return &design, nil
}

func (s *s3Store) DeleteDesign(ctx context.Context, userID, id string) error {
	k, err := key("designs", userID, id)
	if err != nil {
		return err
	}
	found, err := s.exists(ctx, k)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	return nil
}

// OrderStore implementation
func (s *s3Store) CreateOrder(ctx context.Context, order *core.Order) error {
	k, err := key("orders", order.UserID, order.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.putNew(ctx, k, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("order %s: %w", order.ID, err)
		}
		return err
	}
	return nil
}

func (s *s3Store) ListOrders(ctx context.Context, userID string) ([]*core.Order, error) {
	if _, err := key("orders", userID); err != nil {
		return nil, err
	}
	orders, err := list[core.Order](ctx, s, "orders/"+userID+"/")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *s3Store) GetOrder(ctx context.Context, userID, id string) (*core.Order, error) {
	k, err := key("orders", userID, id)
	if err != nil {
		return nil, err
	}
	var order core.Order
	if err := s.get(ctx, k, &order); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		return nil, err
	}
	return &order, nil
}

// UserStore implementation
func (s *s3Store) CreateUser(ctx context.Context, user *core.User) error {
	k, err := key("users", record.EmailKey(user.Email))
	if err != nil {
		return err
	}
	data, err := record.EncodeUser(user)
	if err != nil {
		return err
	}
	if err := s.putNew(ctx, k, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("user %s: %w", record.NormalizeEmail(user.Email), err)
		}
		return err
	}
	return nil
}

func (s *s3Store) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	k, err := key("users", record.EmailKey(email))
	if err != nil {
		return nil, err
	}
	var data []byte
	if err := s.get(ctx, k, &data); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", record.NormalizeEmail(email), err)
		}
		return nil, err
	}
	return record.DecodeUser(data)
}
