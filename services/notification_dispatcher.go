package services

import (
	"context"
	"log"
	"sync"
	"time"

	"darkQuestsAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

const pushTimeout = 10 * time.Second

// NotificationDispatcher delivers queued events on a fixed pool of workers.
// Delivery is best effort: a full queue drops the event.
type NotificationDispatcher struct {
	service      *NotificationService
	mu           sync.RWMutex
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *notification.Event
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(service *NotificationService, workers, queueSize int) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  workers,
		jobQueue: make(chan *notification.Event, queueSize),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()
	return dispatcher
}

// SetPushProvider injects the FCM provider from main.go.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) provider() PushNotificationProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.jobQueue:
			d.processJob(event)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(event *notification.Event) {
	provider := d.provider()
	if provider == nil {
		log.Printf("Skipping %s push for %s: no push provider", event.Type, event.UserID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	tokens, err := d.service.GetDeviceTokens(ctx, event.UserID)
	if err != nil {
		log.Printf("Failed to load device tokens for %s: %v", event.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := provider.SendPush(ctx, tokens, event.Title, event.Body, event.Data); err != nil {
		log.Printf("Push failed for user %s: %v", event.UserID, err)
	}
}

// Dispatch queues the event without blocking. It reports whether the event
// was accepted.
func (d *NotificationDispatcher) Dispatch(event *notification.Event) bool {
	select {
	case <-d.stopChan:
		return false
	default:
	}

	select {
	case d.jobQueue <- event:
		return true
	default:
		notificationsDroppedTotal.Inc()
		log.Printf("Dropping %s notification for %s: queue full", event.Type, event.UserID)
		return false
	}
}

// Stop waits for in-flight deliveries. Queued events are discarded.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()
}
