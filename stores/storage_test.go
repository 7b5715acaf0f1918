package stores

import (
	"context"
	"testing"

	"apparel-studio/config"
	"apparel-studio/core"
)

func TestGetStore_Backends(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"default", config.Config{}},
		{"memory", config.Config{StorageType: "memory"}},
		{"filesystem", config.Config{StorageType: "filesystem", LocalStoragePath: t.TempDir()}},
		{"sqlite", config.Config{StorageType: "sqlite", DataSourceName: ":memory:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			store := GetStore(&cfg)
			if store == nil {
				t.Fatal("GetStore() returned nil")
			}

			ctx := context.Background()
			design := &core.SavedDesign{ID: "design-1", UserID: "user-1", ProductID: "tshirt-1"}
			if err := store.SaveDesign(ctx, design); err != nil {
				t.Fatalf("SaveDesign() failed: %v", err)
			}
			got, err := store.GetDesign(ctx, "user-1", "design-1")
			if err != nil {
				t.Fatalf("GetDesign() failed: %v", err)
			}
			if got.ProductID != "tshirt-1" {
				t.Errorf("GetDesign() product = %q, want tshirt-1", got.ProductID)
			}
		})
	}
}
