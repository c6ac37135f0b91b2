package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Collection names, also used as writer lock keys.
const (
	CollectionAssignments = "assignments"
	CollectionSubmissions = "submissions"
	CollectionPapers      = "papers"
)

// Record id prefixes per collection.
const (
	assignmentIDPrefix = "asg"
	submissionIDPrefix = "sub"
	paperIDPrefix      = "paper"
)

// IDGenerator returns a new unique identifier carrying the given prefix.
type IDGenerator func(prefix string) string

// NewIDGenerator returns a generator of time-ordered ids such as "sub_0192...".
func NewIDGenerator() IDGenerator {
	return func(prefix string) string {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		return fmt.Sprintf("%s_%s", prefix, id.String())
	}
}

// WriterLocks serializes writers per collection.
type WriterLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriterLocks creates an empty lock set.
func NewWriterLocks() *WriterLocks {
	return &WriterLocks{locks: make(map[string]*sync.Mutex)}
}

// For returns the writer lock of a collection.
func (w *WriterLocks) For(collection string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	lock, ok := w.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[collection] = lock
	}
	return lock
}

var defaultLocks = NewWriterLocks()

// Options customises how repositories assign identity and validate records.
// Zero values fall back to process-wide defaults.
type Options struct {
	IDs       IDGenerator
	Now       func() time.Time
	Locks     *WriterLocks
	Validator *validator.Validate
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = NewIDGenerator()
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.Locks == nil {
		o.Locks = defaultLocks
	}
	if o.Validator == nil {
		o.Validator = validator.New(validator.WithRequiredStructEnabled())
	}
	return o
}
