package simulation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/core/simulation/simtest"
)

func TestSessionFinalizesOnSuccess(t *testing.T) {
	sim := &simtest.Scripted{}
	sess := simulation.NewSession(sim)
	err := sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, sim.Finalized())
	assert.True(t, sess.Closed())
}

func TestSessionFinalizesOnError(t *testing.T) {
	sim := &simtest.Scripted{FinalizeErr: errors.New("close failed")}
	sess := simulation.NewSession(sim)
	boom := errors.New("boom")
	err := sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sim.Finalized())
}

type warnLog struct {
	warnings []string
}

func (*warnLog) Debugf(string, ...any)            {}
func (*warnLog) Debugw(string, corelogger.Fields) {}
func (*warnLog) Infof(string, ...any)             {}
func (l *warnLog) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (*warnLog) Errorf(string, ...any) {}

func TestSessionLogsFinalizeErrorAfterFailedRun(t *testing.T) {
	sim := &simtest.Scripted{FinalizeErr: errors.New("close failed")}
	log := &warnLog{}
	sess := simulation.NewSession(sim, simulation.WithSessionLogger(log))
	boom := errors.New("boom")
	err := sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return boom })
	assert.ErrorIs(t, err, boom)
	var fe *simulation.FinalizeError
	assert.False(t, errors.As(err, &fe))
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "close failed")
}

func TestSessionFinalizesOnPanic(t *testing.T) {
	sim := &simtest.Scripted{}
	sess := simulation.NewSession(sim)
	func() {
		defer func() { _ = recover() }()
		_ = sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { panic("engine crashed") })
	}()
	assert.Equal(t, 1, sim.Finalized())
}

func TestSessionFinalizeError(t *testing.T) {
	sim := &simtest.Scripted{FinalizeErr: errors.New("close failed")}
	err := simulation.NewSession(sim).Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil })
	var fe *simulation.FinalizeError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, model.ErrSimulatorFailure)
}

func TestSessionSingleUse(t *testing.T) {
	sim := &simtest.Scripted{}
	sess := simulation.NewSession(sim)
	require.NoError(t, sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil }))
	err := sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil })
	assert.ErrorIs(t, err, simulation.ErrSessionClosed)
	assert.Equal(t, 1, sim.Finalized())
}

func TestSessionRejectsConcurrentUse(t *testing.T) {
	sess := simulation.NewSession(&simtest.Scripted{})
	err := sess.Use(context.Background(), func(ctx context.Context, _ simulation.Simulator) error {
		return sess.Use(ctx, func(context.Context, simulation.Simulator) error { return nil })
	})
	assert.ErrorIs(t, err, simulation.ErrSessionBusy)
}

func TestSessionNilSimulator(t *testing.T) {
	err := simulation.NewSession(nil).Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil })
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestSessionCloseUnused(t *testing.T) {
	sim := &simtest.Scripted{}
	sess := simulation.NewSession(sim)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, sim.Finalized())
	err := sess.Use(context.Background(), func(context.Context, simulation.Simulator) error { return nil })
	assert.ErrorIs(t, err, simulation.ErrSessionClosed)
}
