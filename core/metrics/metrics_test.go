package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	runs   int
	states int
	err    error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordScenarioStates(ScenarioStateEvent) error {
	r.states++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{err: errors.New("down")}
	s2 := &recordSink{}
	s3 := &runOnly{}
	m := NewMultiSink(s1, s2, s3)

	err := m.RecordRun(RunEvent{Target: "M1", Status: StatusOK})
	assert.EqualError(t, err, "down")
	assert.NoError(t, m.RecordScenarioStates(ScenarioStateEvent{Target: "M1"}))

	assert.Equal(t, 1, s1.runs)
	assert.Equal(t, 1, s2.runs, "later sinks still receive the event")
	assert.Equal(t, 1, s3.runs)
	assert.Equal(t, 1, s1.states)
	assert.Equal(t, 1, s2.states)
}

type closingSink struct {
	runOnly
	closed int
}

func (c *closingSink) Close() { c.closed++ }

func TestMultiSink_Close(t *testing.T) {
	c1 := &closingSink{}
	c2 := &closingSink{}
	m := NewMultiSink(c1, &runOnly{}, c2)
	Close(m)
	assert.Equal(t, 1, c1.closed)
	assert.Equal(t, 1, c2.closed)

	Close(NopSink{})
}
