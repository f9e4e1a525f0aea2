package orchestrator

import (
	"bufio"
	"io"
	"sync"
)

// streamLine is one line read from the child's stdout or stderr, or the
// read error that ended a stream. It does not record which stream it came
// from; the consumer writes every line to the log and, optionally, the
// terminal in the order received.
type streamLine struct {
	text string
	err  error
}

// pump is a producer goroutine: it scans r line by line and feeds each line
// into out, preserving per-stream order (spec §4.F step 4, §5 "per-stream
// line-atomicity"). When r is exhausted or erroring it marks wg done; it
// never closes out, which the caller does once every producer has finished.
func pump(r io.Reader, out chan<- streamLine, wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out <- streamLine{text: sc.Text()}
	}
	if err := sc.Err(); err != nil {
		out <- streamLine{err: err}
	}
}
