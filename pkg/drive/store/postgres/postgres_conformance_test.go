//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) drive.Store {
		cfg := *sharedConfig
		store, err := NewPostgresDriveStore(context.Background(), &cfg)
		if err != nil {
			t.Fatalf("NewPostgresDriveStore() failed: %v", err)
		}

		// Tests share one database; start each from a tree holding only the root.
		_, err = store.pool.Exec(context.Background(), `
			TRUNCATE files, folders;
			INSERT INTO folders (id, name, parent_id, owner_id, created_at)
			VALUES ('root', 'My Drive', NULL, '', to_timestamp(0));`)
		if err != nil {
			t.Fatalf("failed to reset tables: %v", err)
		}

		t.Cleanup(func() {
			store.Close()
		})
		return store
	})
}
