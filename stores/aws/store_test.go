package aws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"apparel-studio/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
		wantErr  bool
	}{
		{[]string{"user-1", "design-1"}, "designs/user-1/design-1.json", false},
		{[]string{"user-1", "../x"}, "", true},
		{[]string{"..", "design-1"}, "", true},
		{[]string{"user-1", ""}, "", true},
	}
	for _, tt := range tests {
		got, err := key("designs", tt.segments...)
		if (err != nil) != tt.wantErr {
			t.Errorf("key(%v) error = %v, wantErr %v", tt.segments, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("key(%v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestDesigns_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := newStoreWithClient(fake, "bucket")
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	later := &core.SavedDesign{ID: "design-a", UserID: "user-1", ProductID: "tshirt-1", CreatedAt: base.Add(time.Hour)}
	earlier := &core.SavedDesign{ID: "design-b", UserID: "user-1", ProductID: "tshirt-1", CreatedAt: base}
	for _, d := range []*core.SavedDesign{later, earlier} {
		if err := store.SaveDesign(ctx, d); err != nil {
			t.Fatalf("SaveDesign() failed: %v", err)
		}
	}
	if _, ok := fake.objects["designs/user-1/design-a.json"]; !ok {
		t.Errorf("expected object at designs/user-1/design-a.json, have %v", fake.objects)
	}
	if err := store.SaveDesign(ctx, earlier); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("SaveDesign() duplicate error = %v, want ErrAlreadyExists", err)
	}

	designs, err := store.ListDesigns(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListDesigns() failed: %v", err)
	}
	if len(designs) != 2 || designs[0].ID != "design-b" {
		t.Errorf("ListDesigns() = %v, want design-b first", designs)
	}

	if _, err := store.GetDesign(ctx, "user-2", "design-a"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetDesign() other user error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteDesign(ctx, "user-1", "design-a"); err != nil {
		t.Fatalf("DeleteDesign() failed: %v", err)
	}
	if err := store.DeleteDesign(ctx, "user-1", "design-a"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteDesign() twice error = %v, want ErrNotFound", err)
	}
}

func TestListDesigns_Error(t *testing.T) {
	fake := newFakeS3()
	fake.listErr = errors.New("access denied")
	store := newStoreWithClient(fake, "bucket")

	if _, err := store.ListDesigns(context.Background(), "user-1"); err == nil {
		t.Error("ListDesigns() succeeded despite list failure")
	}
}

func TestOrdersAndUsers(t *testing.T) {
	store := newStoreWithClient(newFakeS3(), "bucket")
	ctx := context.Background()

	order := &core.Order{ID: "order-1", UserID: "user-1", Total: 49.98, Status: "paid"}
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder() failed: %v", err)
	}
	got, err := store.GetOrder(ctx, "user-1", "order-1")
	if err != nil || got.Total != 49.98 {
		t.Errorf("GetOrder() = %+v, %v", got, err)
	}
	orders, err := store.ListOrders(ctx, "user-1")
	if err != nil || len(orders) != 1 {
		t.Errorf("ListOrders() = %v, %v", orders, err)
	}

	user := &core.User{ID: "user-1", Email: "Test@Example.com", PasswordHash: []byte("hash")}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if err := store.CreateUser(ctx, &core.User{ID: "user-2", Email: "test@example.com"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrAlreadyExists", err)
	}
	found, err := store.FindUserByEmail(ctx, "test@example.com")
	if err != nil || found.ID != "user-1" || string(found.PasswordHash) != "hash" {
		t.Errorf("FindUserByEmail() = %+v, %v", found, err)
	}
	if _, err := store.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindUserByEmail() missing error = %v, want ErrNotFound", err)
	}
}
