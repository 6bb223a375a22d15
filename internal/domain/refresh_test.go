package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testURLA = "https://api.open-meteo.com/v1/forecast?latitude=59.8586&longitude=17.6389"
	testURLB = "https://api.open-meteo.com/v1/forecast?latitude=59.8590&longitude=17.6389"
)

func TestShouldFetch(t *testing.T) {
	now := utc(2024, 6, 1, 12, 0, 0)

	tests := []struct {
		name      string
		candidate string
		lastURL   string
		lastFetch time.Time
		want      bool
	}{
		{"first fetch", testURLA, "", time.Time{}, true},
		{"same url within the hour", testURLA, testURLA, now.Add(-10 * time.Minute), false},
		{"new url within the hour", testURLB, testURLA, now.Add(-10 * time.Minute), false},
		{"same url after the hour", testURLA, testURLA, now.Add(-2 * time.Hour), false},
		{"new url after the hour", testURLB, testURLA, now.Add(-61 * time.Minute), true},
		{"exactly one hour is not enough", testURLB, testURLA, now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFetch(tt.candidate, tt.lastURL, tt.lastFetch, now))
		})
	}
}

func TestRefreshPolicy_Admit(t *testing.T) {
	p := RefreshPolicy{}
	var state RefreshState
	now := utc(2024, 6, 1, 12, 0, 0)

	assert.True(t, p.Admit(&state, testURLA, now))
	assert.Equal(t, RefreshState{LastURL: testURLA, LastFetch: now}, state)

	assert.False(t, p.Admit(&state, testURLA, now.Add(time.Second)), "second call in succession")
	assert.False(t, p.Admit(&state, testURLB, now.Add(30*time.Minute)), "throttled within the hour")
	assert.Equal(t, RefreshState{LastURL: testURLA, LastFetch: now}, state, "rejections leave state alone")

	later := now.Add(time.Hour + time.Minute)
	assert.True(t, p.Admit(&state, testURLB, later))
	assert.Equal(t, RefreshState{LastURL: testURLB, LastFetch: later}, state)
}

func TestRefreshPolicy_CustomInterval(t *testing.T) {
	p := RefreshPolicy{MinInterval: 5 * time.Minute}
	now := utc(2024, 6, 1, 12, 0, 0)

	assert.False(t, p.ShouldFetch(testURLB, testURLA, now.Add(-4*time.Minute), now))
	assert.True(t, p.ShouldFetch(testURLB, testURLA, now.Add(-6*time.Minute), now))
}
