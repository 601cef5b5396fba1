package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	startErr error
	log      *[]string
}

func (s recordingService) Name() string { return s.name }

func (s recordingService) Start(context.Context) error {
	*s.log = append(*s.log, "start "+s.name)
	return s.startErr
}

func (s recordingService) Stop(context.Context) error {
	*s.log = append(*s.log, "stop "+s.name)
	return nil
}

func TestManagerOrdering(t *testing.T) {
	var log []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{name: "a", log: &log}))
	require.NoError(t, m.Register(recordingService{name: "b", log: &log}))
	assert.Error(t, m.Register(recordingService{name: "a", log: &log}))
	assert.Equal(t, []string{"a", "b"}, m.Services())

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var log []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{name: "a", log: &log}))
	require.NoError(t, m.Register(recordingService{name: "b", startErr: errors.New("bad schedule"), log: &log}))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, log)
}
