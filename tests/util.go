package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/liveclass"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive, isVerified bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Roles:      roles,
		IsActive:   isActive,
		IsVerified: isVerified,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, description, category, level string,
	isFree, isPublished bool,
	instructorID string,
	createdAt ...time.Time,
) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs := course.Course{
		Title:        title,
		Slug:         course.MakeSlug(title),
		Description:  description,
		Category:     category,
		Level:        level,
		Language:     course.DefaultLanguage,
		IsFree:       isFree,
		InstructorID: instructorID,
		IsPublished:  isPublished,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLiveClass(
	t *testing.T,
	repo liveclass.Repository,
	courseID, instructorID, title string,
	isPrivate bool,
	capacity *int,
	start, end time.Time,
	createdAt ...time.Time,
) liveclass.LiveClass {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	lc := liveclass.LiveClass{
		CourseID:     courseID,
		InstructorID: instructorID,
		Title:        title,
		Status:       liveclass.StatusScheduled,
		IsPrivate:    isPrivate,
		Capacity:     null.IntFromPtr(capacity),
		StartTime:    start.UTC(),
		EndTime:      end.UTC(),
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	lc, err := repo.CreateLiveClass(context.Background(), lc)
	if err != nil {
		t.Fatalf("CreateLiveClass() failed: %v", err)
	}
	return lc
}

func CreateAttendance(
	t *testing.T,
	repo liveclass.Repository,
	userID, liveClassID string,
	joinedAt time.Time,
) liveclass.Attendance {
	att, err := repo.UpsertAttendance(context.Background(), liveclass.Attendance{
		UserID:      userID,
		LiveClassID: liveClassID,
		JoinedAt:    joinedAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return att
}
