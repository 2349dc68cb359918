package notify

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tracker-api/internal/codec"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/jobs"
	"github.com/phrazzld/tracker-api/internal/platform/mail"
	"github.com/zeebo/blake3"
)

// StatusChangedJobType is the job type of StatusChangedJob records.
const StatusChangedJobType = "task_status_changed"

// TaskSnapshot is the state of a task at the moment its status changed.
type TaskSnapshot struct {
	ID          int64     `cbor:"id"`
	Title       string    `cbor:"title"`
	Description string    `cbor:"description"`
	Status      string    `cbor:"status"`
	Priority    string    `cbor:"priority"`
	Responsible string    `cbor:"responsible"`
	Performers  []string  `cbor:"performers,omitempty"`
	UpdatedAt   time.Time `cbor:"updated_at"`
}

// StatusChangedPayload is the persisted payload of a StatusChangedJob.
type StatusChangedPayload struct {
	Recipient string       `cbor:"recipient"`
	Task      TaskSnapshot `cbor:"task"`
}

// NewTaskSnapshot captures task for an email. responsible is used for the
// owner's display name.
func NewTaskSnapshot(task *domain.Task, responsible *domain.User) TaskSnapshot {
	snap := TaskSnapshot{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		UpdatedAt:   task.UpdatedAt.UTC(),
	}
	if responsible != nil {
		snap.Responsible = fullName(responsible)
	}
	for _, p := range task.Performers {
		if p != nil {
			snap.Performers = append(snap.Performers, fullName(p))
		}
	}
	return snap
}

func fullName(u *domain.User) string {
	return u.Name + " " + u.Surname
}

// dedupeDomainKey separates status-change fingerprints from any other keyed
// BLAKE3 use. ASCII of the domain name, zero-padded to 32 bytes.
var dedupeDomainKey = [32]byte{
	't', 'r', 'a', 'c', 'k', 'e', 'r', '.', 's', 't', 'a', 't', 'u', 's', '-', 'c',
	'h', 'a', 'n', 'g', 'e', 'd', '.', 'v', '1', 0, 0, 0, 0, 0, 0, 0,
}

// dedupeFields are the parts of a payload that identify one transition.
type dedupeFields struct {
	Recipient string    `cbor:"1,keyasint"`
	TaskID    int64     `cbor:"2,keyasint"`
	Status    string    `cbor:"3,keyasint"`
	UpdatedAt time.Time `cbor:"4,keyasint"`
}

// DedupeKey returns the hex BLAKE3 fingerprint of the transition described by
// p. Two payloads for the same recipient, task, new status and update time
// share a key.
func (p StatusChangedPayload) DedupeKey() (string, error) {
	data, err := codec.Marshal(dedupeFields{
		Recipient: p.Recipient,
		TaskID:    p.Task.ID,
		Status:    p.Task.Status,
		UpdatedAt: p.Task.UpdatedAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode dedupe fields: %w", err)
	}

	hasher, err := blake3.NewKeyed(dedupeDomainKey[:])
	if err != nil {
		panic("notify: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// StatusChangedJob emails the responsible user about a status change.
type StatusChangedJob struct {
	id        uuid.UUID
	payload   StatusChangedPayload
	raw       []byte
	dedupeKey string
	sender    mail.Sender
	from      string
}

var _ jobs.Job = (*StatusChangedJob)(nil)

// errNoSender is returned when a job built for enqueueing only is executed.
var errNoSender = errors.New("status change job has no mail sender")

// NewStatusChangedJob creates a job with a fresh id. A nil sender gives a job
// that can be enqueued but not executed.
func NewStatusChangedJob(payload StatusChangedPayload, sender mail.Sender, from string) (*StatusChangedJob, error) {
	return newStatusChangedJob(uuid.New(), payload, sender, from)
}

func newStatusChangedJob(
	id uuid.UUID,
	payload StatusChangedPayload,
	sender mail.Sender,
	from string,
) (*StatusChangedJob, error) {
	raw, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status change payload: %w", err)
	}
	key, err := payload.DedupeKey()
	if err != nil {
		return nil, err
	}
	return &StatusChangedJob{
		id:        id,
		payload:   payload,
		raw:       raw,
		dedupeKey: key,
		sender:    sender,
		from:      from,
	}, nil
}

// ID implements jobs.Job.
func (j *StatusChangedJob) ID() uuid.UUID { return j.id }

// Type implements jobs.Job.
func (j *StatusChangedJob) Type() string { return StatusChangedJobType }

// Payload implements jobs.Job.
func (j *StatusChangedJob) Payload() []byte { return j.raw }

// DedupeKey implements jobs.Job.
func (j *StatusChangedJob) DedupeKey() string { return j.dedupeKey }

// Execute renders the email and sends it.
func (j *StatusChangedJob) Execute(ctx context.Context) error {
	t := j.payload.Task
	msg, err := mail.NewStatusChangeMessage(j.from, j.payload.Recipient, mail.StatusChange{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Responsible: t.Responsible,
		Performers:  t.Performers,
		UpdatedAt:   t.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if j.sender == nil {
		return errNoSender
	}
	if err := j.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send status change email for task %d: %w", t.ID, err)
	}
	return nil
}

// RegisterJobs adds the notification job factories to registry.
func RegisterJobs(registry *jobs.Registry, sender mail.Sender, from string) {
	registry.Register(StatusChangedJobType, func(rec *jobs.Record) (jobs.Job, error) {
		var payload StatusChangedPayload
		if err := codec.Unmarshal(rec.Payload, &payload); err != nil {
			diag, _ := codec.Diagnose(rec.Payload)
			return nil, fmt.Errorf("failed to decode status change payload %s: %w", diag, err)
		}
		return newStatusChangedJob(rec.ID, payload, sender, from)
	})
}
