package testutil

import (
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
)

// NSQTestDelegate captures what a handler does with an NSQ message,
// so worker tests can run without nsqd. It implements
// nsq.MessageDelegate.
type NSQTestDelegate struct {
	Message   *nsq.Message
	Delay     time.Duration
	Backoff   bool
	Operation string
	// Touches counts OnTouch calls; Operation only keeps the last.
	Touches int
	mutex   sync.Mutex
}

// NewNSQTestDelegate returns a pointer to a new NSQTestDelegate.
func NewNSQTestDelegate() *NSQTestDelegate {
	return &NSQTestDelegate{}
}

// OnFinish receives the Finish() call from an NSQ message.
func (delegate *NSQTestDelegate) OnFinish(message *nsq.Message) {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	delegate.Message = message
	delegate.Operation = "finish"
}

// OnRequeue receives the Requeue() call from an NSQ message.
func (delegate *NSQTestDelegate) OnRequeue(message *nsq.Message, delay time.Duration, backoff bool) {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	delegate.Message = message
	delegate.Delay = delay
	delegate.Backoff = backoff
	delegate.Operation = "requeue"
}

// OnTouch receives the Touch() call from an NSQ message.
func (delegate *NSQTestDelegate) OnTouch(message *nsq.Message) {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	delegate.Message = message
	delegate.Operation = "touch"
	delegate.Touches++
}

// LastOperation returns the last thing the handler did with the
// message: "finish", "requeue", "touch" or "".
func (delegate *NSQTestDelegate) LastOperation() string {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	return delegate.Operation
}

// TouchCount returns the number of times the message was touched.
func (delegate *NSQTestDelegate) TouchCount() int {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	return delegate.Touches
}
