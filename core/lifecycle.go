package core

import (
	"fmt"
	"sync"

	"github.com/civilsoul/offlined/schema"
)

// EventKind names an inbound platform event.
type EventKind string

// Platform events the agent reacts to.
const (
	EventInstall           EventKind = "install"
	EventActivate          EventKind = "activate"
	EventRequest           EventKind = "request"
	EventPush              EventKind = "push"
	EventSync              EventKind = "sync"
	EventMessage           EventKind = "message"
	EventNotificationClick EventKind = "notification-click"
)

// lifecycle is the agent's install/activate state machine. Intercepted
// traffic is served only in the active state; before that every request
// passes through untouched.
type lifecycle struct {
	mu    sync.RWMutex
	state schema.AgentState
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: schema.StateInstalling}
}

// State reports the current lifecycle state.
func (l *lifecycle) State() schema.AgentState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *lifecycle) transition(from, to schema.AgentState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return fmt.Errorf("cannot transition %s -> %s from state %s", from, to, l.state)
	}
	l.state = to
	return nil
}

// Install prepares the versioned partitions and moves the agent from
// installing to waiting. Partition opening is idempotent so a repeated
// install is harmless.
func (a *Agent) Install() error {
	names := a.partitionNames()
	a.static = a.registry.OpenPartition(names[schema.PartitionStatic])
	a.api = a.registry.OpenPartition(names[schema.PartitionAPI])
	a.images = a.registry.OpenPartition(names[schema.PartitionImages])

	if err := a.life.transition(schema.StateInstalling, schema.StateWaiting); err != nil {
		return err
	}
	a.log.Info("install complete", "version", a.versionTag)
	return nil
}

// Activate deletes every partition not belonging to the current version
// and moves the agent to active. Cleanup must succeed first; a failed
// cleanup leaves the agent waiting with stale partitions intact.
func (a *Agent) Activate() error {
	names := a.partitionNames()
	keep := make([]string, 0, len(names))
	for _, name := range names {
		keep = append(keep, name)
	}
	if err := a.registry.DeleteObsoletePartitions(keep); err != nil {
		return fmt.Errorf("activation blocked: %w", err)
	}

	if err := a.life.transition(schema.StateWaiting, schema.StateActive); err != nil {
		return err
	}
	a.log.Info("activation complete", "version", a.versionTag)
	return nil
}

// SkipWaiting activates a waiting agent immediately. The call is a no-op
// when the agent is not waiting.
func (a *Agent) SkipWaiting() error {
	if a.life.State() != schema.StateWaiting {
		return nil
	}
	a.log.Info("skip-waiting requested")
	return a.Activate()
}

// State reports the agent's lifecycle state.
func (a *Agent) State() schema.AgentState {
	return a.life.State()
}

// partitionNames maps each partition base to its versioned name.
func (a *Agent) partitionNames() map[string]string {
	return map[string]string{
		schema.PartitionStatic: schema.PartitionName(schema.PartitionStatic, a.versionTag),
		schema.PartitionAPI:    schema.PartitionName(schema.PartitionAPI, a.versionTag),
		schema.PartitionImages: schema.PartitionName(schema.PartitionImages, a.versionTag),
	}
}
