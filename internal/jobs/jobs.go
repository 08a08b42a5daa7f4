// Package jobs tracks background training runs and broadcasts their progress.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/rollcall/internal/constants"
)

// ErrJobRunning is returned when a subject already has an active training job.
var ErrJobRunning = errors.New("a training job is already running for this subject")

// Status represents the status of a job.
type Status string

// Status constants define the lifecycle states of a job.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal returns true if the job will not change anymore.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Event represents an event from a job.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting.
type EventBroadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Job is one training run of a subject.
type Job struct {
	EventBroadcaster

	state View
	mu    sync.RWMutex
}

// View is a point-in-time copy of a job, safe to serialize.
type View struct {
	ID             string     `json:"id"`
	SubjectID      int64      `json:"subject_id"`
	Mode           string     `json:"mode"`
	Status         Status     `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStudent string     `json:"current_student,omitempty"`
	Processed      int        `json:"processed"`
	Total          int        `json:"total"`
	Message        string     `json:"message,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Result         any        `json:"result,omitempty"`
}

// ID returns the job ID.
func (j *Job) ID() string {
	return j.state.ID
}

// View returns a copy of the current job state.
func (j *Job) View() View {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// GetStatus returns the current job status.
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.Status
}

func (j *Job) update(eventType string, fn func(s *View)) {
	j.mu.Lock()
	fn(&j.state)
	j.state.UpdatedAt = time.Now()
	snapshot := j.state
	j.mu.Unlock()

	j.SendEvent(Event{Type: eventType, Message: snapshot.Message, Data: snapshot})
}

// Start marks the job as running over total people.
func (j *Job) Start(total int, message string) {
	j.update("started", func(s *View) {
		s.Status = StatusRunning
		s.Total = total
		s.Message = message
	})
}

// Advance records that processed of total people are done, current being the
// person now being worked on.
func (j *Job) Advance(current string, processed int, message string) {
	j.update("progress", func(s *View) {
		s.CurrentStudent = current
		s.Processed = processed
		if s.Total > 0 {
			s.Progress = processed * 100 / s.Total
		}
		s.Message = message
	})
}

// Complete marks the job as successfully finished.
func (j *Job) Complete(result any, message string) {
	j.update("completed", func(s *View) {
		now := time.Now()
		s.Status = StatusCompleted
		s.Progress = 100
		s.CurrentStudent = ""
		s.Message = message
		s.Result = result
		s.CompletedAt = &now
	})
}

// Fail marks the job as failed. result may carry a partial report.
func (j *Job) Fail(err error, result any) {
	j.update("failed", func(s *View) {
		now := time.Now()
		s.Status = StatusFailed
		s.CurrentStudent = ""
		s.Error = err.Error()
		s.Message = err.Error()
		s.Result = result
		s.CompletedAt = &now
	})
}

// Registry keeps jobs in memory. Finished jobs are retained for retention.
type Registry struct {
	jobs      map[string]*Job
	retention time.Duration
	mu        sync.RWMutex
}

// NewRegistry creates a new job registry.
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

// Create registers a pending job for the subject. Only one job per subject
// may be active at a time.
func (r *Registry) Create(subjectID int64, mode string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(time.Now())
	for _, j := range r.jobs {
		v := j.View()
		if v.SubjectID == subjectID && !v.Status.Terminal() {
			return nil, ErrJobRunning
		}
	}

	now := time.Now()
	job := &Job{state: View{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Mode:      mode,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	r.jobs[job.ID()] = job
	return job, nil
}

// Get retrieves a job by ID.
func (r *Registry) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

// LatestForSubject returns the most recently created job of a subject, or nil.
func (r *Registry) LatestForSubject(subjectID int64) *Job {
	var latest *Job
	for _, j := range r.List() {
		if j.View().SubjectID == subjectID {
			latest = j
		}
	}
	return latest
}

// List returns all jobs ordered by creation time.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].View().CreatedAt.Before(jobs[b].View().CreatedAt)
	})
	return jobs
}

func (r *Registry) pruneLocked(now time.Time) {
	if r.retention <= 0 {
		return
	}
	for id, j := range r.jobs {
		v := j.View()
		if v.CompletedAt != nil && now.Sub(*v.CompletedAt) > r.retention {
			delete(r.jobs, id)
		}
	}
}
