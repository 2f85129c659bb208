package selector

import (
	"context"
	"sync"
)

// parallel calls fn(i) for i in [0, n) on at most workers goroutines. It
// stops handing out indexes once ctx is done; indexes already handed out
// still run. A panic in fn is re-raised on the calling goroutine after all
// workers have stopped.
func parallel(ctx context.Context, n, workers int, fn func(i int)) {
	if workers > n {
		workers = n
	}

	var (
		wg        sync.WaitGroup
		once      sync.Once
		recovered any
	)
	next := make(chan int)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				func() {
					defer func() {
						if r := recover(); r != nil {
							once.Do(func() { recovered = r })
						}
					}()
					fn(i)
				}()
			}
		}()
	}

feed:
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		select {
		case next <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if recovered != nil {
		panic(recovered)
	}
}
