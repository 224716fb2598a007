package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/globaltrotters/apiserver/internal/mq"
	"github.com/globaltrotters/apiserver/types"
)

// Sender sends one email. *Mailer satisfies it.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Welcome to GlobalTrotters, {{.FirstName}}!</h2>
  <p>Your account is ready. Create a trip, add cities and let the planner fill in the rest.</p>
</body>
</html>`))

	planTemplate = template.Must(template.New("plan").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Your trip "{{.TripName}}" is planned</h2>
  <p>{{.StartDate}} to {{.EndDate}}</p>
  <ol>{{range .Cities}}<li>{{.}}</li>{{end}}</ol>
</body>
</html>`))

	postTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thanks for sharing, {{.FirstName}}!</h2>
  <p>Your post "{{.Title}}" is now live in the community.</p>
</body>
</html>`))
)

// Notifier turns domain events into emails.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// HandleUserRegistered sends the welcome email. Undecodable messages are
// dropped; delivery failures are returned so the broker redelivers.
func (n *Notifier) HandleUserRegistered(ctx context.Context, msg mq.Message) error {
	var event types.UserRegisteredEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("notify: drop malformed %s message %s: %v", types.ChannelUserRegistered, msg.ID, err)
		return nil
	}
	if strings.TrimSpace(event.Email) == "" {
		return nil
	}

	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, event); err != nil {
		return fmt.Errorf("render welcome email: %w", err)
	}
	text := fmt.Sprintf("Welcome to GlobalTrotters, %s! Your account is ready.", event.FirstName)
	if err := n.sender.Send(event.Email, "Welcome to GlobalTrotters", body.String(), text); err != nil {
		return fmt.Errorf("send welcome email to user %d: %w", event.UserID, err)
	}
	log.Printf("notify: welcome email sent to user %d", event.UserID)
	return nil
}

// HandleTripPlanned sends a summary of a freshly generated itinerary.
func (n *Notifier) HandleTripPlanned(ctx context.Context, msg mq.Message) error {
	var event types.TripPlannedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("notify: drop malformed %s message %s: %v", types.ChannelTripPlanned, msg.ID, err)
		return nil
	}
	if strings.TrimSpace(event.Email) == "" {
		return nil
	}

	var body bytes.Buffer
	if err := planTemplate.Execute(&body, event); err != nil {
		return fmt.Errorf("render plan email: %w", err)
	}
	text := fmt.Sprintf("Your trip %q (%s to %s) is planned: %s.",
		event.TripName, event.StartDate, event.EndDate, strings.Join(event.Cities, ", "))
	subject := fmt.Sprintf("Your trip %q is planned", event.TripName)
	if err := n.sender.Send(event.Email, subject, body.String(), text); err != nil {
		return fmt.Errorf("send plan email for trip %d: %w", event.TripID, err)
	}
	log.Printf("notify: plan email sent for trip %d", event.TripID)
	return nil
}

// HandlePostCreated confirms to the author that their post is published.
func (n *Notifier) HandlePostCreated(ctx context.Context, msg mq.Message) error {
	var event types.PostCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("notify: drop malformed %s message %s: %v", types.ChannelPostCreated, msg.ID, err)
		return nil
	}
	if strings.TrimSpace(event.Email) == "" {
		return nil
	}

	var body bytes.Buffer
	if err := postTemplate.Execute(&body, event); err != nil {
		return fmt.Errorf("render post email: %w", err)
	}
	text := fmt.Sprintf("Your post %q is now live in the GlobalTrotters community.", event.Title)
	if err := n.sender.Send(event.Email, "Your post is live", body.String(), text); err != nil {
		return fmt.Errorf("send post email for post %d: %w", event.PostID, err)
	}
	log.Printf("notify: post email sent for post %d", event.PostID)
	return nil
}
