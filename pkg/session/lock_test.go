package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/taleweave/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("collection-%d", i)
		_ = mgr.WithLock(ctx, key, func(ctx context.Context) error { return nil })
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining after release", lockCount)
	}
}
