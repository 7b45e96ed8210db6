package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key holding a student's single-device login JTI.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:student:%d", studentID)
}

// AttendancePinKey returns the cache key mapping a live PIN to its session id.
func (r *CacheKeyStruct) AttendancePinKey(pin string) string {
	return fmt.Sprintf("attendance:pin:%s", pin)
}

// AttendanceSessionChannel returns the Redis PubSub channel for a session's roster events.
func (r *CacheKeyStruct) AttendanceSessionChannel(sessionID string) string {
	return fmt.Sprintf("attendance:session:%s:events", sessionID)
}

// ExpirySweepCursorKey stores the upper bound of the last expiry sweep window.
func (r *CacheKeyStruct) ExpirySweepCursorKey() string {
	return "attendance:expiry_sweep:cursor"
}

var CacheKey = NewCacheKeyStruct()
