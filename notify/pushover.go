// Package notify sends out of band alerts for problems that need a human.
package notify

import (
	"context"
	"time"

	"github.com/gregdel/pushover"
)

const deviceName = "MediaSpyy"

type Pushover struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

func NewPushover(token, recipient string) *Pushover {
	return &Pushover{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(recipient),
	}
}

// Notify sends a high priority message. The pushover client has no context
// support so ctx is only checked before sending.
func (p *Pushover) Notify(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.app.SendMessage(&pushover.Message{
		Message:    message,
		Title:      title,
		Priority:   pushover.PriorityHigh,
		Timestamp:  time.Now().Unix(),
		DeviceName: deviceName,
	}, p.recipient)
	return err
}
