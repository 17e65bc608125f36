package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProjectStats(t *testing.T) {
	empty := ComputeProjectStats(nil, fixedNow)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.AverageProgress)

	a := NewProject("a")
	a.Status = StatusInDevelopment
	a.Progress = 40
	a.DueDate = day(-2)
	b := NewProject("b")
	b.Status = StatusDeployed
	b.Progress = 100
	b.DueDate = day(-30)
	c := NewProject("c")
	c.Progress = 25

	s := ComputeProjectStats([]Project{a, b, c}, fixedNow)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 55, s.AverageProgress)
	assert.Equal(t, 1, s.ByStatus[StatusPlanning])
}

func TestComputeTaskStats(t *testing.T) {
	s := ComputeTaskStats(sampleProjects(), fixedNow)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.ByStatus[TaskTodo])
	assert.Equal(t, 1, s.ByStatus[TaskDone])
	// the done task is overdue by date but not counted
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 1, s.Today)
	assert.Equal(t, 1, s.Urgent)
	assert.Equal(t, 0, s.Warning)
}

func TestCalendarEvents(t *testing.T) {
	projects := sampleProjects()
	projects[0].DueDate = day(3)

	events := CalendarEvents(projects)
	require.Len(t, events, 6)
	assert.Equal(t, "task-p1-t3", events[0].ID)

	onDue := EventsOn(events, fixedNow.AddDate(0, 0, 3))
	require.Len(t, onDue, 1)
	assert.Equal(t, "project-p1", onDue[0].ID)
	assert.Equal(t, UrgencyUrgent, onDue[0].Urgency(fixedNow))

	assert.Equal(t, UrgencyNone, events[0].Urgency(fixedNow), "done tasks are not urgent")
}

func TestMonthGridStartsMonday(t *testing.T) {
	// March 2026 starts on a Sunday
	weeks := MonthGrid(2026, time.March, time.UTC)
	require.Len(t, weeks, 6)
	assert.True(t, weeks[0][0].IsZero())
	assert.Equal(t, 1, weeks[0][6].Day())
	assert.Equal(t, 2, weeks[1][0].Day())
	assert.Equal(t, 31, weeks[5][1].Day())
	assert.True(t, weeks[5][2].IsZero())
}
