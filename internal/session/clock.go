package session

import "time"

var timeNow = time.Now

// SetTimeNowFn replaces the clock used to judge token expiry. Used in tests only.
func SetTimeNowFn(fn func() time.Time) { timeNow = fn }

func RestoreTimeNow() { timeNow = time.Now }
