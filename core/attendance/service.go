package attendance

import (
	"errors"
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNoActiveSession = errors.New("no active session found for this class")
	ErrNotOwner        = errors.New("you are not authorized to manage sessions for this class")
	ErrInvalidCode     = errors.New("invalid or expired session code")
	ErrSessionClosed   = errors.New("session is no longer active")
	ErrAlreadyMarked   = errors.New("attendance already marked for this session")
	ErrNotEnrolled     = errors.New("you are not enrolled in this class")

	errCodeExhausted = errors.New("could not draw an unused session code")

	nowFunc = time.Now // mockable

	// tunables; package defaults come from config, tests override directly
	codeLength    = core.Conf.Attendance.CodeLength
	codeRetryCap  = core.Conf.Attendance.CodeRetryCap
	goodThreshold = core.Conf.Attendance.GoodThreshold
)

type (
	Repository interface {
		// CreateSession inserts the session and, in the same atomic step,
		// deactivates any session still active for its class; the class never
		// observably holds two live sessions, however opens interleave.
		CreateSession(s Session) (Session, error)
		GetActiveSessionByClass(classID int) (Session, error)
		// GetActiveSessionByCode scans active sessions of every class;
		// ErrNoActiveSession when no active session holds the code.
		GetActiveSessionByCode(code string) (Session, error)
		GetActiveSessionByClassAndCode(classID int, code string) (Session, error)
		// DeactivateSessions marks every active session of the class inactive
		// and reports how many were affected.
		DeactivateSessions(classID int) (int, error)
		// EndActiveSession flips the class's active session inactive and
		// returns its final state; ErrNoActiveSession when none is active.
		// The flip must be atomic with respect to AddPresentStudent.
		EndActiveSession(classID int) (Session, error)
		// AddPresentStudent appends studentID to the session's present set if
		// and only if the session is still active and the student is not yet
		// present. This check-and-append must be a single atomic step:
		// ErrAlreadyMarked on duplicates, ErrSessionClosed once inactive.
		AddPresentStudent(sessionID, studentID int) (Session, error)
		// CountSessions counts the class's sessions, active and ended;
		// month/year of 0 mean no filtering.
		CountSessions(classID, month, year int) (int, error)
		CountAttendedSessions(classID, studentID, month, year int) (int, error)
	}

	Service struct {
		repo        Repository
		clsRepo     class.Repository
		usrRepo     user.Repository
		broadcaster core.Broadcaster
		logger      core.Logger
	}
)

func NewService(
	repo Repository,
	clsRepo class.Repository,
	usrRepo user.Repository,
	broadcaster core.Broadcaster,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		clsRepo:     clsRepo,
		usrRepo:     usrRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Open starts a new attendance window for the class: any previous active
// session is superseded, a fresh unique code is drawn and published on the
// class record. Only the owning teacher may open a session.
func (svc *Service) Open(classID, requesterID int) (Session, class.Class, error) {
	cls, err := svc.clsRepo.GetClassByID(classID)
	if err != nil {
		return Session{}, class.Class{}, err
	}
	if !cls.IsOwnedBy(requesterID) {
		return Session{}, class.Class{}, ErrNotOwner
	}

	// at most one active session per class
	if _, err := svc.repo.DeactivateSessions(classID); err != nil {
		return Session{}, class.Class{}, pkgerrors.Wrap(err, "deactivating previous sessions")
	}
	if err := svc.clsRepo.SetActiveCode(classID, nil); err != nil {
		return Session{}, class.Class{}, pkgerrors.Wrap(err, "clearing published code")
	}

	code, err := svc.drawCode()
	if err != nil {
		return Session{}, class.Class{}, err
	}

	now := nowFunc().UTC()
	sess := Session{
		ClassID:   classID,
		Date:      now,
		Month:     int(now.Month()),
		Year:      now.Year(),
		Code:      code,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess, err = svc.repo.CreateSession(sess)
	if err != nil {
		return Session{}, class.Class{}, pkgerrors.Wrap(err, "creating session")
	}

	if err := svc.clsRepo.SetActiveCode(classID, &code); err != nil {
		return Session{}, class.Class{}, pkgerrors.Wrap(err, "publishing code")
	}
	cls.ActiveCode = &code

	return sess, cls, nil
}

// drawCode draws candidate codes until none of the currently active sessions
// holds the candidate. Collisions are resolved by re-drawing, never surfaced
// to the caller; a broken random source trips the retry cap instead of
// looping forever.
func (svc *Service) drawCode() (string, error) {
	for i := 0; i < codeRetryCap; i++ {
		code := GenerateCode(codeLength)
		_, err := svc.repo.GetActiveSessionByCode(code)
		if err == ErrNoActiveSession {
			return code, nil
		}
		if err != nil {
			return "", pkgerrors.Wrap(err, "checking code uniqueness")
		}
	}
	return "", errCodeExhausted
}

// End closes the class's active session and clears the published code.
// Ending a class with no active session reports ErrNoActiveSession, so a
// repeated call is a harmless no-op.
func (svc *Service) End(classID, requesterID int) (Session, error) {
	cls, err := svc.clsRepo.GetClassByID(classID)
	if err != nil {
		return Session{}, err
	}
	if !cls.IsOwnedBy(requesterID) {
		return Session{}, ErrNotOwner
	}

	sess, err := svc.repo.EndActiveSession(classID)
	if err != nil {
		return Session{}, err
	}
	if err := svc.clsRepo.SetActiveCode(classID, nil); err != nil {
		return Session{}, pkgerrors.Wrap(err, "clearing published code")
	}
	return sess, nil
}

// ActiveSession returns the class's currently open session, if any.
func (svc *Service) ActiveSession(classID int) (Session, error) {
	return svc.repo.GetActiveSessionByClass(classID)
}

// Mark records a student's check-in against the session whose code they
// submitted and notifies the teacher and class topics. The duplicate check
// and the append happen in one conditional repository update, so concurrent
// submissions by the same student yield exactly one success.
func (svc *Service) Mark(code string, studentID int) (MarkResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return MarkResult{}, core.NewValidationError(nil, core.FieldError{Field: "code", Error: "this field is required"})
	}

	cls, err := svc.clsRepo.GetClassByActiveCode(code)
	if err != nil {
		if err == class.ErrNotFound {
			return MarkResult{}, ErrInvalidCode
		}
		return MarkResult{}, pkgerrors.Wrap(err, "finding class by code")
	}

	if !cls.HasStudent(studentID) {
		return MarkResult{}, ErrNotEnrolled
	}

	sess, err := svc.repo.GetActiveSessionByClassAndCode(cls.ID, code)
	if err != nil {
		// ended (or superseded) between the class lookup and here
		if err == ErrNoActiveSession {
			return MarkResult{}, ErrSessionClosed
		}
		return MarkResult{}, pkgerrors.Wrap(err, "finding session by code")
	}

	sess, err = svc.repo.AddPresentStudent(sess.ID, studentID)
	if err != nil {
		return MarkResult{}, err
	}

	svc.notify(cls, sess, studentID)

	return MarkResult{Class: cls, Session: sess}, nil
}

// notify publishes the check-in event; realtime delivery is best-effort and
// never fails the check-in itself.
func (svc *Service) notify(cls class.Class, sess Session, studentID int) {
	usr, err := svc.usrRepo.GetUserByID(studentID)
	if err != nil {
		svc.logger.Warn("loading student for check-in event", err)
		return
	}

	ev := Event{
		ClassID:      cls.ID,
		SessionID:    sess.ID,
		StudentID:    usr.ID,
		StudentName:  usr.Name,
		RollNumber:   usr.RollNumber,
		Timestamp:    nowFunc().UTC(),
		PresentCount: sess.PresentCount(),
	}
	if err := svc.broadcaster.Publish(TopicTeacher(cls.TeacherID), ev); err != nil {
		svc.logger.Warn("publishing check-in event to teacher topic", err)
	}
	if err := svc.broadcaster.Publish(TopicClass(cls.ID), ev); err != nil {
		svc.logger.Warn("publishing check-in event to class topic", err)
	}
}

// ClassReport aggregates attended counts and percentages for every enrolled
// student. month/year of 0 mean the whole history.
func (svc *Service) ClassReport(classID, month, year int) (ClassReport, error) {
	cls, err := svc.clsRepo.GetClassByID(classID)
	if err != nil {
		return ClassReport{}, err
	}

	total, err := svc.repo.CountSessions(classID, month, year)
	if err != nil {
		return ClassReport{}, pkgerrors.Wrap(err, "counting sessions")
	}

	report := ClassReport{
		ClassID:       cls.ID,
		ClassName:     cls.Name,
		Subject:       cls.Subject,
		Month:         month,
		Year:          year,
		TotalSessions: total,
		Students:      make([]StudentAttendance, 0, len(cls.StudentIDs)),
	}
	for _, studentID := range cls.StudentIDs {
		usr, err := svc.usrRepo.GetUserByID(studentID)
		if err != nil {
			return ClassReport{}, pkgerrors.Wrapf(err, "loading student %d", studentID)
		}
		attended, err := svc.repo.CountAttendedSessions(classID, studentID, month, year)
		if err != nil {
			return ClassReport{}, pkgerrors.Wrap(err, "counting attended sessions")
		}
		report.Students = append(report.Students, StudentAttendance{
			StudentID:        usr.ID,
			Name:             usr.Name,
			Email:            usr.Email,
			RollNumber:       usr.RollNumber,
			AttendedSessions: attended,
			TotalSessions:    total,
			Percentage:       percentage(attended, total),
		})
	}
	return report, nil
}

// StudentReport returns one standing per class the student is enrolled in.
func (svc *Service) StudentReport(studentID int) (StudentReport, error) {
	classes, err := svc.clsRepo.QueryClassesByStudent(studentID)
	if err != nil {
		return StudentReport{}, pkgerrors.Wrap(err, "querying enrolled classes")
	}

	report := StudentReport{
		StudentID: studentID,
		Classes:   make([]ClassStanding, 0, len(classes)),
	}
	for _, cls := range classes {
		total, err := svc.repo.CountSessions(cls.ID, 0, 0)
		if err != nil {
			return StudentReport{}, pkgerrors.Wrap(err, "counting sessions")
		}
		attended, err := svc.repo.CountAttendedSessions(cls.ID, studentID, 0, 0)
		if err != nil {
			return StudentReport{}, pkgerrors.Wrap(err, "counting attended sessions")
		}
		pct := percentage(attended, total)
		report.Classes = append(report.Classes, ClassStanding{
			ClassID:          cls.ID,
			ClassName:        cls.Name,
			Subject:          cls.Subject,
			TotalSessions:    total,
			AttendedSessions: attended,
			Percentage:       pct,
			Status:           standing(pct),
		})
	}
	return report, nil
}

func percentage(attended, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}

func standing(pct int) string {
	if pct >= goodThreshold {
		return StatusGood
	}
	return StatusLow
}
