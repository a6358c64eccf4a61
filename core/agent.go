package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/metrics"
	"github.com/civilsoul/offlined/schema"
)

// Agent is the top-level event handler. One agent instance owns the
// partition handles, the strategies and the drain routine for the
// lifetime of the process.
type Agent struct {
	registry   *Registry
	classifier *Classifier
	strategies *Strategies
	dispatcher *Dispatcher
	drainer    *Drainer
	fetch      contract.Fetcher
	channel    contract.Broadcaster
	tasks      *TaskRunner
	metrics    *metrics.Metrics
	log        *slog.Logger

	life       *lifecycle
	versionTag string

	static *Partition
	api    *Partition
	images *Partition
}

// AgentDeps carries the collaborators an agent needs. Metrics may be nil.
type AgentDeps struct {
	Store   contract.StoreManager
	Fetch   contract.Fetcher
	Host    contract.Host
	Channel contract.Broadcaster
	Metrics *metrics.Metrics
	Log     *slog.Logger
	Config  *contract.Config
}

// NewAgent assembles an agent in the installing state. Install and
// Activate must run before intercepted traffic is served.
func NewAgent(deps AgentDeps) *Agent {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	registry := NewRegistry(deps.Store.PartitionStore(), log)
	classifier := NewClassifier(deps.Config)
	tasks := NewTaskRunner(log)
	dispatcher := NewDispatcher(deps.Host, deps.Config.ProductName, log)
	drainer := NewDrainer(deps.Store.QueueStore(), deps.Fetch, deps.Config.MaxDrainAttempts, dispatcher, deps.Channel, log)

	return &Agent{
		registry:   registry,
		classifier: classifier,
		strategies: NewStrategies(deps.Fetch, tasks, classifier, log),
		dispatcher: dispatcher,
		drainer:    drainer,
		fetch:      deps.Fetch,
		channel:    deps.Channel,
		tasks:      tasks,
		metrics:    deps.Metrics,
		log:        log,
		life:       newLifecycle(),
		versionTag: deps.Config.VersionTag,
	}
}

// Drainer exposes the replay routine for transports and tooling.
func (a *Agent) Drainer() *Drainer { return a.drainer }

// Dispatcher exposes notification handling for transports.
func (a *Agent) Dispatcher() *Dispatcher { return a.dispatcher }

// Wait blocks until detached background work (revalidations) settles.
func (a *Agent) Wait() { a.tasks.Wait() }

// HandleRequest produces a response for an intercepted request. Requests
// arriving before activation, and bypass-class requests, go straight to
// the network. Every classified request emits a performance sample to
// connected instances.
func (a *Agent) HandleRequest(ctx context.Context, req *schema.Request) (*schema.CachedResponse, schema.RequestClass, error) {
	class := a.classifier.Classify(req)
	if a.life.State() != schema.StateActive || class == schema.ClassBypass {
		resp, err := a.fetch.Do(ctx, req)
		return resp, schema.ClassBypass, err
	}

	start := time.Now()
	var (
		resp   *schema.CachedResponse
		cached bool
		err    error
	)
	switch class {
	case schema.ClassAPI:
		resp, cached, err = a.strategies.NetworkFirst(ctx, req, a.api)
	case schema.ClassImage:
		resp, cached, err = a.strategies.CacheFirst(ctx, req, a.images)
	default:
		resp, cached, err = a.strategies.StaleWhileRevalidate(ctx, req, a.static)
	}
	elapsed := time.Since(start)

	outcome := "network"
	switch {
	case err != nil:
		outcome = "error"
	case cached:
		outcome = "cache"
		a.metrics.ObserveCacheHit(string(class))
	}
	a.metrics.ObserveRequest(string(class), outcome, elapsed.Seconds())

	sample := schema.PerformanceSample{
		URL:        req.URL,
		Method:     req.Method,
		DurationMS: float64(elapsed.Microseconds()) / 1000.0,
		Cached:     cached,
	}
	if msg, merr := schema.NewClientMessage(schema.MessagePerformance, sample); merr == nil {
		a.channel.Broadcast(msg)
	}

	return resp, class, err
}

// HandlePush receives a raw push body, shows the resulting notification
// and mirrors it to connected instances.
func (a *Agent) HandlePush(body []byte) error {
	n := a.dispatcher.FromPush(body)
	if err := a.dispatcher.Show(n); err != nil {
		return err
	}
	if msg, err := schema.NewClientMessage(schema.MessageNotification, n); err == nil {
		a.channel.Broadcast(msg)
	}
	return nil
}

// HandleSync drains the queue named by a sync trigger tag. Unrecognized
// tags are ignored. Drain failures are reported in the result, not as an
// error, since a failed cycle retries on the next trigger.
func (a *Agent) HandleSync(ctx context.Context, tag string) schema.DrainResult {
	category, ok := schema.ParseQueueCategory(tag)
	if !ok {
		a.log.Info("ignoring sync trigger with unknown tag", "tag", tag)
		return schema.DrainResult{}
	}

	result, err := a.drainer.DrainCategory(ctx, category)
	if err != nil {
		a.log.Warn("drain cycle failed", "category", category, "error", err)
		result.Failed = true
	}
	a.metrics.ObserveDrain(string(category), "replayed", result.Replayed)
	a.metrics.ObserveDrain(string(category), "buried", result.Buried)
	return result
}

// HandleMessage reacts to a message from a foreground instance. Only
// SKIP_WAITING carries a command; everything else is ignored.
func (a *Agent) HandleMessage(msg schema.ClientMessage) error {
	switch msg.Type {
	case schema.MessageSkipWaiting:
		return a.SkipWaiting()
	default:
		a.log.Debug("ignoring client message", "type", msg.Type)
		return nil
	}
}

// HandleNotificationClick routes a notification click to an open or new
// foreground instance.
func (a *Agent) HandleNotificationClick(n *schema.NotificationRequest, action string) error {
	return a.dispatcher.HandleClick(n, action)
}

// Event is one inbound platform event for generic dispatch.
type Event struct {
	Kind         EventKind
	Request      *schema.Request
	PushBody     []byte
	SyncTag      string
	Message      schema.ClientMessage
	Notification *schema.NotificationRequest
	Action       string
}

// HandleEvent dispatches an event to its typed handler. Request events
// should use HandleRequest directly when the response is needed.
func (a *Agent) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventInstall:
		return a.Install()
	case EventActivate:
		return a.Activate()
	case EventRequest:
		_, _, err := a.HandleRequest(ctx, ev.Request)
		return err
	case EventPush:
		return a.HandlePush(ev.PushBody)
	case EventSync:
		a.HandleSync(ctx, ev.SyncTag)
		return nil
	case EventMessage:
		return a.HandleMessage(ev.Message)
	case EventNotificationClick:
		return a.HandleNotificationClick(ev.Notification, ev.Action)
	}
	a.log.Debug("ignoring unknown event", "kind", ev.Kind)
	return nil
}

// EnqueueMutation stores an offline mutation for later replay. The data
// payload must be valid JSON.
func (a *Agent) EnqueueMutation(category schema.QueueCategory, itemType, token string, data json.RawMessage) (int64, error) {
	item := &schema.QueueItem{
		Category: category,
		Type:     itemType,
		Token:    token,
		Data:     data,
		Enqueued: time.Now().UTC(),
	}
	return a.drainer.Enqueue(item)
}
