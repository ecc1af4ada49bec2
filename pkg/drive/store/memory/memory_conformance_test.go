package memory_test

import (
	"testing"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/store/memory"
	"github.com/marmos91/dittodrive/pkg/drive/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) drive.Store {
		return memory.NewMemoryDriveStore()
	})
}
