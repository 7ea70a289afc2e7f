package go_func_utils

import (
	"log"
	"runtime/debug"
	"sync"
)

// SafeGo runs fn on a new goroutine and logs any panic with its stack before re-panicking.
// The curses UI owns the terminal, so a crash on stderr would otherwise be lost.
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer logPanic(logger)
		fn()
	}()
}

// SafeGoWG is SafeGo tracked by wg. wg.Done is called when fn returns.
func SafeGoWG(logger *log.Logger, wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer logPanic(logger)
		fn()
	}()
}

func logPanic(logger *log.Logger) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Printf("PANIC: %v\n%s", r, debug.Stack())
		}
		panic(r)
	}
}
