package ws

import (
	"testing"
	"time"
)

func TestPostDropsMessageAfterWriterExit(t *testing.T) {
	c := &conversation{
		send: make(chan outbound, 1),
		done: make(chan struct{}),
	}

	// Fill the buffer, then simulate the writer exiting on a write error.
	c.send <- outbound{Type: "question"}
	close(c.done)

	finished := make(chan struct{})
	go func() {
		c.post(outbound{Type: "completed"})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("post blocked after the writer exited")
	}
}
