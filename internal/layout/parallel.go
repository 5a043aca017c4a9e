package layout

import (
	"runtime"
	"sync"
)

// parallelFor runs fn(i) over i in [0, n) using up to GOMAXPROCS workers.
// Work is distributed by striding so neighbouring indices land on different
// workers.
func parallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := min(runtime.GOMAXPROCS(0), n)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := w; i < n; i += workers {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
