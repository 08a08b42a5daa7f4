package database

import "errors"

// ErrDuplicateAttendance is returned when a present record already exists
// for the same student in the same session or on the same day.
var ErrDuplicateAttendance = errors.New("attendance already recorded")
