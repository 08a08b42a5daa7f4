package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

// Policy runs the attendance gates in order and stops at the first that fires.
type Policy struct {
	students   database.StudentReader
	sessions   database.SessionWriter
	attendance database.AttendanceWriter
	locker     Locker

	minAntiSpoofing float64
	location        *time.Location
	now             func() time.Time
	logger          *zap.Logger
}

// NewPolicy creates a decision policy. A nil locker falls back to an
// in-process keyed mutex.
func NewPolicy(
	students database.StudentReader,
	sessions database.SessionWriter,
	attendance database.AttendanceWriter,
	locker Locker,
	cfg config.AttendanceConfig,
	log *zap.Logger,
) *Policy {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	minScore := cfg.MinAntiSpoofingScore
	if minScore <= 0 {
		minScore = constants.DefaultMinAntiSpoofingScore
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{
		students:        students,
		sessions:        sessions,
		attendance:      attendance,
		locker:          locker,
		minAntiSpoofing: minScore,
		location:        loc,
		now:             time.Now,
		logger:          logger.OrNop(log),
	}
}

// Screen applies the client telemetry gate. It touches no storage, so callers
// can run it before paying for recognition.
func (p *Policy) Screen(t *Telemetry) (Decision, bool) {
	if t == nil {
		return Decision{}, true
	}
	if t.SpoofingDetected {
		return Decision{Outcome: OutcomeSpoofingDetected, Message: "Spoofing detected - Attendance blocked"}, false
	}
	if t.AntiSpoofingScore < p.minAntiSpoofing {
		return Decision{Outcome: OutcomeLowAntiSpoofing, Message: "Insufficient anti-spoofing verification"}, false
	}
	return Decision{}, true
}

// Decide returns the outcome for req. Errors are infrastructure failures or
// ErrSessionNotFound, never domain outcomes.
func (p *Policy) Decide(ctx context.Context, req Request) (Decision, error) {
	if d, ok := p.Screen(req.Telemetry); !ok {
		return d, nil
	}
	if req.Liveness != nil && !req.Liveness.Live {
		return Decision{Outcome: OutcomeNotLive, Message: "Liveness check not passed: " + req.Liveness.Message}, nil
	}

	res := req.Result
	if res.Status != facematch.StatusRecognized || res.Roll == "" {
		return fromResult(res), nil
	}

	student, err := p.students.FindByRoll(ctx, req.SubjectID, res.Roll)
	if err != nil {
		return Decision{}, fmt.Errorf("find student %q: %w", res.Roll, err)
	}
	if student == nil {
		p.logger.Warn("recognized roll has no student record",
			zap.Int64("subject_id", req.SubjectID), zap.String("roll", res.Roll))
		return Decision{Outcome: OutcomeUnknown, Roll: res.Roll, Message: "Student not found in database"}, nil
	}

	session, err := p.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return Decision{}, fmt.Errorf("get session %d: %w", req.SessionID, err)
	}
	if session == nil || session.SubjectID != req.SubjectID {
		return Decision{}, ErrSessionNotFound
	}

	base := Decision{
		Roll:        student.Roll,
		StudentID:   student.ID,
		StudentName: student.Name,
		Confidence:  res.Similarity,
		Candidates:  res.Candidates,
	}

	unlock, err := p.locker.Lock(ctx, lockKey(req.SubjectID, student.ID))
	if err != nil {
		return Decision{}, fmt.Errorf("acquire attendance lock: %w", err)
	}
	defer unlock()

	return p.commit(ctx, req, session, student, base)
}

func (p *Policy) commit(ctx context.Context, req Request, session *database.ClassSession, student *database.Student, d Decision) (Decision, error) {
	existing, err := p.attendance.FindInSession(ctx, session.ID, student.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("check session attendance: %w", err)
	}
	if existing != nil {
		return alreadyMarked(d), nil
	}

	now := p.now().In(p.location)
	today := database.DateOf(now)
	existing, err = p.attendance.FindOnDate(ctx, req.SubjectID, student.ID, today)
	if err != nil {
		return Decision{}, fmt.Errorf("check daily attendance: %w", err)
	}
	if existing != nil {
		return alreadyMarkedToday(d), nil
	}

	rec := &database.AttendanceRecord{
		ClassSessionID: session.ID,
		StudentID:      student.ID,
		SubjectID:      req.SubjectID,
		Date:           session.Date,
		Timestamp:      now.UTC(),
		Status:         database.AttendancePresent,
		Confidence:     req.Result.Similarity,
		Reason:         Reason(req.Telemetry, req.Liveness),
	}
	if err := p.attendance.CreateAttendance(ctx, rec); err != nil {
		if errors.Is(err, database.ErrDuplicateAttendance) {
			// Another writer got there first, the store's unique index caught it.
			return p.resolveDuplicate(ctx, session.ID, student.ID, d)
		}
		return Decision{}, fmt.Errorf("create attendance: %w", err)
	}

	p.logger.Info("attendance marked",
		zap.Int64("subject_id", req.SubjectID),
		zap.Int64("session_id", session.ID),
		zap.String("roll", student.Roll),
		zap.Float64("confidence", rec.Confidence),
		zap.String("reason", rec.Reason),
	)

	d.Outcome = OutcomeMarked
	d.Message = fmt.Sprintf("Attendance marked for %s", student.Name)
	d.Record = rec
	return d, nil
}

func (p *Policy) resolveDuplicate(ctx context.Context, sessionID, studentID int64, d Decision) (Decision, error) {
	existing, err := p.attendance.FindInSession(ctx, sessionID, studentID)
	if err != nil {
		return Decision{}, fmt.Errorf("check session attendance: %w", err)
	}
	if existing != nil {
		return alreadyMarked(d), nil
	}
	return alreadyMarkedToday(d), nil
}

func alreadyMarked(d Decision) Decision {
	d.Outcome = OutcomeAlreadyMarked
	d.Message = fmt.Sprintf("%s - Already marked in this session", d.StudentName)
	return d
}

func alreadyMarkedToday(d Decision) Decision {
	d.Outcome = OutcomeAlreadyMarkedToday
	d.Message = fmt.Sprintf("%s - Already marked today", d.StudentName)
	return d
}

// StartSession opens a class session for the subject dated today in the
// attendance timezone.
func (p *Policy) StartSession(ctx context.Context, subjectID int64) (*database.ClassSession, error) {
	now := p.now().In(p.location)
	s := &database.ClassSession{
		SubjectID: subjectID,
		Date:      database.DateOf(now),
		StartTime: now.UTC(),
	}
	if err := p.sessions.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	p.logger.Info("class session started", zap.Int64("subject_id", subjectID), zap.Int64("session_id", s.ID))
	return s, nil
}

// Records lists the attendance of a session.
func (p *Policy) Records(ctx context.Context, subjectID, sessionID int64) ([]database.AttendanceRecord, error) {
	session, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", sessionID, err)
	}
	if session == nil || session.SubjectID != subjectID {
		return nil, ErrSessionNotFound
	}
	return p.attendance.ListBySession(ctx, sessionID)
}

func lockKey(subjectID, studentID int64) string {
	return fmt.Sprintf("attendance:%d:%d", subjectID, studentID)
}
