package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gearbox-dev/gearbox/internal/channels"
	"github.com/gearbox-dev/gearbox/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatcher renders a notification once and fans it out to every
// enabled linked channel, writing one log row per attempt. One
// channel's failure never aborts the remaining channels, and Dispatch
// never returns an error to its caller.
type Dispatcher struct {
	db       *gorm.DB
	registry *channels.Registry

	// Called after an in-app row is written so the live feed can
	// refresh. Optional.
	broadcast func(userID uint)
}

func NewDispatcher(conn *gorm.DB, registry *channels.Registry, broadcast func(userID uint)) *Dispatcher {
	return &Dispatcher{
		db:        conn,
		registry:  registry,
		broadcast: broadcast,
	}
}

// Request describes one dispatch. Rule-driven dispatches set Rule and
// Links; direct dispatches (the service-interval path) leave Rule nil
// and carry their own templates, priority and target channels.
type Request struct {
	UserID uint
	Rule   *models.Rule

	// Links must be preloaded with their Channel.
	Links []models.RuleChannelLink

	// Direct-dispatch targets, used when Rule is nil.
	Channels []models.Channel

	TitleTemplate string
	BodyTemplate  string
	Priority      string

	Payload map[string]interface{}
}

type target struct {
	channel  models.Channel
	override map[string]interface{}
}

// Dispatch renders the templates once and sends to each target
// sequentially. Updating the rule's last-fired timestamp is the
// caller's responsibility and is independent of per-channel success.
func (d *Dispatcher) Dispatch(req Request) {
	titleTemplate := req.TitleTemplate
	bodyTemplate := req.BodyTemplate
	priority := req.Priority

	if req.Rule != nil {
		titleTemplate = req.Rule.TitleTemplate
		bodyTemplate = req.Rule.BodyTemplate
		priority = req.Rule.Priority
	}

	if priority == "" {
		priority = models.PriorityNormal
	}

	title := Render(titleTemplate, req.Payload)
	body := Render(bodyTemplate, req.Payload)

	targets := make([]target, 0, len(req.Links)+len(req.Channels))

	for _, link := range req.Links {
		if !link.Channel.Enabled {
			continue
		}
		targets = append(targets, target{channel: link.Channel, override: link.OverrideMap()})
	}

	for _, channel := range req.Channels {
		if !channel.Enabled {
			continue
		}
		targets = append(targets, target{channel: channel})
	}

	// Zero linked enabled channels: dispatch is a no-op.
	if len(targets) == 0 {
		return
	}

	snapshot, err := json.Marshal(req.Payload)

	if err != nil {
		log.Printf("Failed to snapshot payload: %v", err)
		snapshot = nil
	}

	for _, t := range targets {
		d.sendOne(req, t, title, body, priority, snapshot)
	}
}

func (d *Dispatcher) sendOne(req Request, t target, title, body, priority string, snapshot []byte) {
	config := channels.MergeConfig(t.channel.ConfigMap(), t.override)

	start := time.Now()

	var sendErr error

	handler, err := d.registry.Get(t.channel.Type)

	if err != nil {
		sendErr = err
	} else {
		sendErr = handler.Send(config, title, body, priority)
	}

	duration := time.Since(start)

	entry := models.NotificationLogEntry{
		UserID:      req.UserID,
		ChannelID:   &t.channel.ID,
		ChannelType: t.channel.Type,
		Title:       title,
		Body:        body,
		Priority:    priority,
		Status:      models.StatusSent,
		DurationMs:  duration.Milliseconds(),
		Payload:     datatypes.JSON(snapshot),
	}

	if req.Rule != nil {
		entry.RuleID = &req.Rule.ID
	}

	if sendErr != nil {
		entry.Status = models.StatusFailed
		entry.ErrorMessage = sendErr.Error()
		log.Printf("Channel %d (%s) delivery failed: %v", t.channel.ID, t.channel.Type, sendErr)
	}

	if err := d.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to write notification log entry: %v", err)
		return
	}

	if sendErr == nil && t.channel.Type == models.ChannelInApp && d.broadcast != nil {
		d.broadcast(req.UserID)
	}
}
