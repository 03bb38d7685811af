package dummydb

import (
	"sync"

	"github.com/scanmark/backend/core/marking"
	"github.com/scanmark/backend/core/user"
)

// DB is an in-memory stand-in for the real database, used by tests and
// local development without postgres.
type (
	DB struct {
		mu      sync.RWMutex
		nextID  int
		users   map[int]*user.User
		marking *markingTables
	}

	markingTables struct {
		activities  map[int]marking.Activity
		submissions map[int]marking.Submission
		drafts      map[int]marking.Draft
		pages       map[int]marking.Page
		comments    map[int]marking.Comment
		levels      map[int]marking.RubricLevel
		criteria    []criterion
		regrades    map[int]marking.Regrade
		motives     map[int]marking.RegradeMotive
		markers     map[markerKey]marking.Marker
	}

	criterion struct {
		ID          int
		ActivityID  int
		Description string
	}

	markerKey struct {
		activityID int
		userID     int
	}
)

func Open() (*DB, error) {
	return &DB{
		users: make(map[int]*user.User),
		marking: &markingTables{
			activities:  make(map[int]marking.Activity),
			submissions: make(map[int]marking.Submission),
			drafts:      make(map[int]marking.Draft),
			pages:       make(map[int]marking.Page),
			comments:    make(map[int]marking.Comment),
			levels:      make(map[int]marking.RubricLevel),
			regrades:    make(map[int]marking.Regrade),
			motives:     make(map[int]marking.RegradeMotive),
			markers:     make(map[markerKey]marking.Marker),
		},
	}, nil
}

func (db *DB) pk() int {
	db.nextID++
	return db.nextID
}
