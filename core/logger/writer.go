package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter serializes log lines onto a single goroutine. Flush requests
// travel through the same queue, so they observe every earlier write.
type asyncWriter struct {
	ops  chan writeOp
	done chan struct{}
	out  *bufio.Writer

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		ops:  make(chan writeOp, 256),
		done: make(chan struct{}),
		out:  bufio.NewWriterSize(w, bufSize),
	}
	go aw.run()
	return aw
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if len(op.line) > 0 {
			if _, err := w.out.Write(op.line); err != nil {
				w.fail(err)
			}
			if len(w.ops) == 0 {
				w.flush()
			}
		}
		if op.ack != nil {
			op.ack <- w.flush()
		}
	}
	w.flush()
}

func (w *asyncWriter) flush() error {
	err := w.out.Flush()
	w.fail(err)
	return err
}

func (w *asyncWriter) send(op writeOp) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- op
	return nil
}

// Write copies p and queues it. It blocks when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.send(writeOp{line: append([]byte(nil), p...)})
}

// Flush waits until every queued line reached the sink.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.send(writeOp{ack: ack}); err != nil {
		return err
	}
	return <-ack
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()
	<-w.done
	return w.Err()
}

func (w *asyncWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}
