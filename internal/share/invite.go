package share

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Invite is an invitation to a shared list.
type Invite struct {
	From     string // RFC 5322 address
	To       string // RFC 5322 address list
	ListName string
	URL      string
	Date     time.Time
}

// ComposeInvite writes inv to w as a plain-text RFC 5322 message.
func ComposeInvite(w io.Writer, inv Invite) error {
	from, err := mail.ParseAddress(inv.From)
	if err != nil {
		return fmt.Errorf("parsing sender: %w", err)
	}
	to, err := mail.ParseAddressList(inv.To)
	if err != nil {
		return fmt.Errorf("parsing recipients: %w", err)
	}
	if len(to) == 0 {
		return fmt.Errorf("invitation needs at least one recipient")
	}
	if inv.URL == "" {
		return fmt.Errorf("invitation needs a share URL")
	}
	if inv.Date.IsZero() {
		inv.Date = time.Now()
	}

	var h mail.Header
	h.SetDate(inv.Date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(fmt.Sprintf("%s shared a list with you: %s", displayName(from), inv.ListName))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := fmt.Fprintf(body,
		"You have been invited to the list %q.\r\n\r\nOpen it here:\r\n%s\r\n",
		inv.ListName, inv.URL,
	); err != nil {
		body.Close()
		return fmt.Errorf("writing message body: %w", err)
	}
	return body.Close()
}

func displayName(a *mail.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}
