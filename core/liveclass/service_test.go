package liveclass_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/liveclass"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func newService(t *testing.T) (liveclass.Service, liveclass.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewLiveClassRepository(db)
	return liveclass.NewService(repo), repo
}

func createClass(t *testing.T, svc liveclass.Service, instructorID string, nlc liveclass.NewLiveClass) liveclass.LiveClass {
	t.Helper()
	lc, err := svc.Create(context.Background(), nlc, instructorID)
	if err != nil {
		t.Fatalf("createClass(): %v", err)
	}
	return lc
}

func mockNow(now time.Time) {
	liveclass.NowFunc = func() time.Time { return now }
}

func TestServiceCreate(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	svc, _ := newService(t)
	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()

	lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID:  uuid.New().String(),
		Title:     "Go Basics",
		StartTime: start,
		EndTime:   end,
	})
	if lc.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if lc.Status != liveclass.StatusScheduled {
		t.Errorf("Status = %v; want %v", lc.Status, liveclass.StatusScheduled)
	}
	if lc.InstructorID != instructorID {
		t.Errorf("InstructorID = %v; want %v", lc.InstructorID, instructorID)
	}
	if lc.Capacity.Valid {
		t.Error("expected unlimited capacity")
	}

	capacity := 30
	lc = createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID:  uuid.New().String(),
		Title:     "Go Basics II",
		Capacity:  &capacity,
		StartTime: start,
		EndTime:   end,
	})
	if !lc.Capacity.Valid || lc.Capacity.Int != capacity {
		t.Errorf("Capacity = %v; want %v", lc.Capacity, capacity)
	}
}

func TestServiceJoin(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	ctx := context.Background()
	svc, repo := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	inWindow := start.Add(10 * time.Minute)

	instructorID := uuid.New().String()
	userID := uuid.New().String()
	courseID := uuid.New().String()

	open := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: courseID, Title: "Open class", StartTime: start, EndTime: end,
	})
	private := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: courseID, Title: "Private class", IsPrivate: true, StartTime: start, EndTime: end,
	})
	cancelled := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: courseID, Title: "Cancelled class", StartTime: start, EndTime: end,
	})
	if _, err := svc.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("Cancel(): %v", err)
	}
	completed := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: courseID, Title: "Completed class", StartTime: start, EndTime: end,
	})
	completed.Status = liveclass.StatusCompleted
	if _, err := repo.UpdateLiveClass(ctx, completed); err != nil {
		t.Fatalf("UpdateLiveClass(): %v", err)
	}

	capacity := 1
	full := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: courseID, Title: "Full class", Capacity: &capacity, StartTime: start, EndTime: end,
	})
	mockNow(inWindow)
	if _, err := svc.Join(ctx, full.ID, uuid.New().String()); err != nil {
		t.Fatalf("Join(): %v", err)
	}

	tests := []struct {
		name    string
		id      string
		userID  string
		now     time.Time
		wantErr error
	}{
		{name: "unknown class", id: uuid.New().String(), userID: userID, now: inWindow, wantErr: liveclass.ErrNotFound},
		{name: "private class", id: private.ID, userID: userID, now: inWindow, wantErr: liveclass.ErrClassPrivate},
		{name: "cancelled class", id: cancelled.ID, userID: userID, now: inWindow, wantErr: liveclass.ErrClassCancelled},
		{name: "completed class", id: completed.ID, userID: userID, now: inWindow, wantErr: liveclass.ErrClassCompleted},
		{name: "before the window", id: open.ID, userID: userID, now: open.JoinOpensAt().Add(-time.Second), wantErr: liveclass.ErrClassNotStarted},
		{name: "after the window", id: open.ID, userID: userID, now: open.JoinClosesAt().Add(time.Second), wantErr: liveclass.ErrClassEnded},
		{name: "full class", id: full.ID, userID: uuid.New().String(), now: inWindow, wantErr: liveclass.ErrClassFull},
		{name: "private class owner", id: private.ID, userID: instructorID, now: inWindow},
		{name: "open class", id: open.ID, userID: userID, now: inWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNow(tt.now)
			att, err := svc.Join(ctx, tt.id, tt.userID)
			if err != tt.wantErr {
				t.Fatalf("Join() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if !att.IsOpen() {
					t.Error("expected an open attendance")
				}
				if !att.JoinedAt.Equal(tt.now.UTC()) {
					t.Errorf("JoinedAt = %v; want %v", att.JoinedAt, tt.now.UTC())
				}
			}
		})
	}
}

func TestServiceJoinWindowBounds(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	ctx := context.Background()
	svc, _ := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()

	t.Run("join opens early", func(t *testing.T) {
		lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
			CourseID: uuid.New().String(), Title: "Early joiners", StartTime: start, EndTime: end,
		})
		mockNow(lc.JoinOpensAt())
		if _, err := svc.Join(ctx, lc.ID, uuid.New().String()); err != nil {
			t.Fatalf("Join() at the open bound: %v", err)
		}
		got, err := svc.GetByID(ctx, lc.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		// early joins do not start the class
		if got.Status != liveclass.StatusScheduled {
			t.Errorf("Status = %v; want %v", got.Status, liveclass.StatusScheduled)
		}
	})

	t.Run("join at start goes live", func(t *testing.T) {
		lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
			CourseID: uuid.New().String(), Title: "On time", StartTime: start, EndTime: end,
		})
		mockNow(lc.StartTime)
		if _, err := svc.Join(ctx, lc.ID, uuid.New().String()); err != nil {
			t.Fatalf("Join() at start: %v", err)
		}
		got, err := svc.GetByID(ctx, lc.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if got.Status != liveclass.StatusLive {
			t.Errorf("Status = %v; want %v", got.Status, liveclass.StatusLive)
		}
	})

	t.Run("join closes late", func(t *testing.T) {
		lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
			CourseID: uuid.New().String(), Title: "Late joiners", StartTime: start, EndTime: end,
		})
		mockNow(lc.JoinClosesAt())
		if _, err := svc.Join(ctx, lc.ID, uuid.New().String()); err != nil {
			t.Fatalf("Join() at the close bound: %v", err)
		}
	})
}

func TestServiceRejoin(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	ctx := context.Background()
	svc, _ := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()
	userID := uuid.New().String()

	capacity := 1
	lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: uuid.New().String(), Title: "Rejoiners", Capacity: &capacity, StartTime: start, EndTime: end,
	})

	t0 := start.Add(5 * time.Minute)
	mockNow(t0)
	att, err := svc.Join(ctx, lc.ID, userID)
	if err != nil {
		t.Fatalf("Join(): %v", err)
	}

	// rejoining with an open attendance is a no-op
	mockNow(t0.Add(10 * time.Minute))
	att2, err := svc.Join(ctx, lc.ID, userID)
	if err != nil {
		t.Fatalf("Join() again: %v", err)
	}
	if att2.ID != att.ID {
		t.Errorf("ID = %v; want %v", att2.ID, att.ID)
	}
	if !att2.JoinedAt.Equal(att.JoinedAt) {
		t.Errorf("JoinedAt = %v; want %v", att2.JoinedAt, att.JoinedAt)
	}

	// another user is locked out while the only seat is taken
	otherID := uuid.New().String()
	if _, err = svc.Join(ctx, lc.ID, otherID); err != liveclass.ErrClassFull {
		t.Fatalf("Join() error = %v, wantErr %v", err, liveclass.ErrClassFull)
	}

	// leaving frees the seat
	if _, err = svc.Leave(ctx, lc.ID, userID); err != nil {
		t.Fatalf("Leave(): %v", err)
	}
	if _, err = svc.Join(ctx, lc.ID, otherID); err != nil {
		t.Fatalf("Join() after a seat freed: %v", err)
	}

	// rejoining after leaving reopens the same row
	if _, err = svc.Leave(ctx, lc.ID, otherID); err != nil {
		t.Fatalf("Leave(): %v", err)
	}
	t1 := t0.Add(30 * time.Minute)
	mockNow(t1)
	att3, err := svc.Join(ctx, lc.ID, userID)
	if err != nil {
		t.Fatalf("Join() after leaving: %v", err)
	}
	if att3.ID != att.ID {
		t.Errorf("ID = %v; want %v", att3.ID, att.ID)
	}
	if !att3.IsOpen() {
		t.Error("expected an open attendance")
	}
	if !att3.JoinedAt.Equal(t1) {
		t.Errorf("JoinedAt = %v; want %v", att3.JoinedAt, t1)
	}
	if att3.Duration.Valid {
		t.Error("expected duration to be cleared")
	}
}

func TestServiceLeave(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	ctx := context.Background()
	svc, _ := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()
	userID := uuid.New().String()

	lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: uuid.New().String(), Title: "Leavers", StartTime: start, EndTime: end,
	})

	if _, err := svc.Leave(ctx, lc.ID, userID); err != liveclass.ErrAttendanceNotFound {
		t.Fatalf("Leave() error = %v, wantErr %v", err, liveclass.ErrAttendanceNotFound)
	}

	t0 := start.Add(time.Minute)
	mockNow(t0)
	if _, err := svc.Join(ctx, lc.ID, userID); err != nil {
		t.Fatalf("Join(): %v", err)
	}

	t1 := t0.Add(5 * time.Minute)
	mockNow(t1)
	att, err := svc.Leave(ctx, lc.ID, userID)
	if err != nil {
		t.Fatalf("Leave(): %v", err)
	}
	if att.IsOpen() {
		t.Error("expected a closed attendance")
	}
	if !att.LeftAt.Valid || !att.LeftAt.Time.Equal(t1) {
		t.Errorf("LeftAt = %v; want %v", att.LeftAt, t1)
	}
	if !att.Duration.Valid || att.Duration.Int != 300 {
		t.Errorf("Duration = %v; want %v", att.Duration, 300)
	}

	if _, err = svc.Leave(ctx, lc.ID, userID); err != liveclass.ErrAttendanceClosed {
		t.Fatalf("Leave() error = %v, wantErr %v", err, liveclass.ErrAttendanceClosed)
	}
}

func TestServiceCancel(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()

	lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: uuid.New().String(), Title: "Doomed", StartTime: start, EndTime: end,
	})

	got, err := svc.Cancel(ctx, lc.ID)
	if err != nil {
		t.Fatalf("Cancel(): %v", err)
	}
	if got.Status != liveclass.StatusCancelled {
		t.Errorf("Status = %v; want %v", got.Status, liveclass.StatusCancelled)
	}

	if _, err = svc.Cancel(ctx, lc.ID); err != liveclass.ErrClassCancelled {
		t.Fatalf("Cancel() error = %v, wantErr %v", err, liveclass.ErrClassCancelled)
	}

	completed := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: uuid.New().String(), Title: "Done", StartTime: start, EndTime: end,
	})
	completed.Status = liveclass.StatusCompleted
	if _, err = repo.UpdateLiveClass(ctx, completed); err != nil {
		t.Fatalf("UpdateLiveClass(): %v", err)
	}
	if _, err = svc.Cancel(ctx, completed.ID); err != liveclass.ErrClassCompleted {
		t.Fatalf("Cancel() error = %v, wantErr %v", err, liveclass.ErrClassCompleted)
	}

	if _, err = svc.Cancel(ctx, uuid.New().String()); err != liveclass.ErrNotFound {
		t.Fatalf("Cancel() error = %v, wantErr %v", err, liveclass.ErrNotFound)
	}
}

func TestServiceRoster(t *testing.T) {
	defer func() { liveclass.NowFunc = time.Now }()

	ctx := context.Background()
	svc, _ := newService(t)

	start := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	end := start.Add(time.Hour)
	instructorID := uuid.New().String()

	if _, err := svc.Roster(ctx, uuid.New().String()); err != liveclass.ErrNotFound {
		t.Fatalf("Roster() error = %v, wantErr %v", err, liveclass.ErrNotFound)
	}

	lc := createClass(t, svc, instructorID, liveclass.NewLiveClass{
		CourseID: uuid.New().String(), Title: "Roster", StartTime: start, EndTime: end,
	})

	first := uuid.New().String()
	second := uuid.New().String()
	mockNow(start.Add(time.Minute))
	if _, err := svc.Join(ctx, lc.ID, first); err != nil {
		t.Fatalf("Join(): %v", err)
	}
	mockNow(start.Add(2 * time.Minute))
	if _, err := svc.Join(ctx, lc.ID, second); err != nil {
		t.Fatalf("Join(): %v", err)
	}

	atts, err := svc.Roster(ctx, lc.ID)
	if err != nil {
		t.Fatalf("Roster(): %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("len(atts) = %v; want 2", len(atts))
	}
	// newest join first
	if atts[0].UserID != second || atts[1].UserID != first {
		t.Errorf("roster order = [%v, %v]; want [%v, %v]", atts[0].UserID, atts[1].UserID, second, first)
	}
}
