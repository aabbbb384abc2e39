package syncer

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/TerraNova4697/wialon-citypoint/internal/pkg/metrics"
	fsmutil "github.com/TerraNova4697/wialon-citypoint/internal/pkg/util/fsm"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// Lifecycle states of one source orchestrator. There is no terminal
// state: a running source keeps its tasks until the process stops.
const (
	StateUnauthenticated = "unauthenticated"
	StateAuthenticating  = "authenticating"
	StateRunning         = "running"
)

const (
	// EventStart begins the authentication phase.
	EventStart = "event_start"
	// EventAuthenticated marks a successful login.
	EventAuthenticated = "event_authenticated"
)

// lifecycle wraps the state machine guarding the per-source phase.
type lifecycle struct {
	*fsm.FSM
}

func newLifecycle(source string, logger log.Logger) *lifecycle {
	l := &lifecycle{}

	events := fsm.Events{
		{Name: EventStart, Src: []string{StateUnauthenticated}, Dst: StateAuthenticating},
		{Name: EventAuthenticated, Src: []string{StateAuthenticating}, Dst: StateRunning},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
			logger.Info("lifecycle transition", "source", source, "from", e.Src, "to", e.Dst)
			return nil
		}),
		"enter_" + StateRunning: fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
			metrics.SourceUp.WithLabelValues(source).Set(1)
			return nil
		}),
	}

	l.FSM = fsm.NewFSM(StateUnauthenticated, events, callbacks)
	return l
}
