package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/liveclass"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		liveClass  *liveClassTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	liveClassTable struct {
		sync.RWMutex
		table map[string]*liveclass.LiveClass
	}

	// attendanceTable is keyed by userID + "/" + liveClassID
	attendanceTable struct {
		sync.RWMutex
		table map[string]*liveclass.Attendance
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		liveClass:  &liveClassTable{table: make(map[string]*liveclass.LiveClass)},
		attendance: &attendanceTable{table: make(map[string]*liveclass.Attendance)},
	}
	return db, nil
}

// Reset truncates all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.liveClass.Lock()
	db.liveClass.table = make(map[string]*liveclass.LiveClass)
	db.liveClass.Unlock()

	db.attendance.Lock()
	db.attendance.table = make(map[string]*liveclass.Attendance)
	db.attendance.Unlock()
}
