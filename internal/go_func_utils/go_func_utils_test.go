package go_func_utils

import (
	"bytes"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

// TestMain checks that no goroutine outlives the package's tests
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSafeGoWG_WaitsForCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		SafeGoWG(logger, &wg, func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, 5, ran)
	assert.Empty(t, buf.String())
}

func TestLogPanic_LogsAndRepanics(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	assert.PanicsWithValue(t, "boom", func() {
		defer logPanic(logger)
		panic("boom")
	})
	assert.Contains(t, buf.String(), "PANIC: boom")
}
