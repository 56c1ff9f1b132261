package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSortedKeys(t *testing.T) {
	m := map[string][]int{"tiles/31/T/CF/": nil, "tiles/29/S/PC/": nil, "tiles/30/T/VK/": nil}
	assert.Equal(t, []string{"tiles/29/S/PC/", "tiles/30/T/VK/", "tiles/31/T/CF/"}, GetSortedKeys(m))
	assert.Empty(t, GetSortedKeys(map[int]bool{}))
}

func TestExecuteWithMutexSerializes(t *testing.T) {
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ExecuteWithMutex(func() { counter++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
