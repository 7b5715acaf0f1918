package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"apparel-studio/core"
	"apparel-studio/stores/record"

	"github.com/sirupsen/logrus"
)

// fsStore keeps one JSON file per record:
//
//	<base>/users/<email>.json
//	<base>/designs/<userID>/<designID>.json
//	<base>/orders/<userID>/<orderID>.json
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{"users", "designs", "orders"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			log.Fatalf("failed to create base directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath}
}

// path joins segments under the base directory and refuses anything that
// would escape it.
func (s *fsStore) path(segments ...string) (string, error) {
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return "", fmt.Errorf("invalid path segment %q: access denied", seg)
		}
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(filepath.Join(append([]string{s.basePath}, segments...)...))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return absPath, nil
}

// create writes data to a new file, failing if it already exists.
func create(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return core.ErrAlreadyExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readAll decodes every JSON file in dir into a fresh T, skipping files that
// cannot be read.
func readAll[T any](dir string, log *logrus.Entry) ([]*T, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("Directory does not exist, returning empty list.")
			return []*T{}, nil
		}
		log.WithError(err).Error("Failed to read directory")
		return nil, err
	}

	out := make([]*T, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read file %s, skipping", file.Name())
			continue
		}
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal file %s, skipping", file.Name())
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *fsStore) SaveDesign(ctx context.Context, design *core.SavedDesign) error {
	filePath, err := s.path("designs", design.UserID, design.ID+".json")
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": design.ID, "path": filePath})

	data, err := json.Marshal(design)
	if err != nil {
		log.WithError(err).Error("Failed to marshal design for saving")
		return err
	}
	if err := create(filePath, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("design %s: %w", design.ID, err)
		}
		log.WithError(err).Error("Failed to write design file")
		return err
	}

	log.Info("Design saved successfully")
	return nil
}

func (s *fsStore) ListDesigns(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	dir, err := s.path("designs", userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", dir)

	designs, err := readAll[core.SavedDesign](dir, log)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(designs, func(i, j int) bool {
		return designs[i].CreatedAt.Before(designs[j].CreatedAt)
	})

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *fsStore) GetDesign(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	filePath, err := s.path("designs", userID, id+".json")
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read design file")
		return nil, err
	}

	var design core.SavedDesign
	if err := json.Unmarshal(data, &design); err != nil {
		log.WithError(err).Error("Failed to unmarshal design data")
		return nil, err
	}

	log.Info("Design retrieved successfully")
	return &design, nil
}

func (s *fsStore) DeleteDesign(ctx context.Context, userID, id string) error {
	filePath, err := s.path("designs", userID, id+".json")
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found for deletion")
			return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to delete design file")
		return err
	}

	log.Info("Design deleted successfully")
	return nil
}

func (s *fsStore) CreateOrder(ctx context.Context, order *core.Order) error {
	filePath, err := s.path("orders", order.UserID, order.ID+".json")
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": order.UserID, "order_id": order.ID})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := create(filePath, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("order %s: %w", order.ID, err)
		}
		log.WithError(err).Error("Failed to write order file")
		return err
	}

	log.Info("Order created successfully")
	return nil
}

func (s *fsStore) ListOrders(ctx context.Context, userID string) ([]*core.Order, error) {
	dir, err := s.path("orders", userID)
	if err != nil {
		return nil, err
	}
	orders, err := readAll[core.Order](dir, logrus.WithField("user_id", userID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *fsStore) GetOrder(ctx context.Context, userID, id string) (*core.Order, error) {
	filePath, err := s.path("orders", userID, id+".json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *fsStore) CreateUser(ctx context.Context, user *core.User) error {
	filePath, err := s.path("users", record.EmailKey(user.Email)+".json")
	if err != nil {
		return err
	}

	data, err := record.EncodeUser(user)
	if err != nil {
		return err
	}
	if err := create(filePath, data); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return fmt.Errorf("user %s: %w", record.NormalizeEmail(user.Email), err)
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to write user file")
		return err
	}

	logrus.WithField("user_id", user.ID).Info("User created successfully")
	return nil
}

func (s *fsStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	filePath, err := s.path("users", record.EmailKey(email)+".json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("user %s: %w", record.NormalizeEmail(email), core.ErrNotFound)
		}
		return nil, err
	}
	return record.DecodeUser(data)
}
