package notify

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"trdb-estimator/internal/leads"
	"trdb-estimator/internal/storage"
)

// Channel names reported back to the caller.
const (
	ChannelEmail    = "email"
	ChannelSheet    = "sheet"
	ChannelTelegram = "telegram"
)

// Dispatcher fans a captured lead out to every configured channel.
// Capture is best-effort: a channel failure is logged and reported but
// never rolls back the lead or the estimate it carries.
type Dispatcher struct {
	mailer  *Mailer
	leadLog *LeadLog
	tg      *Telegram
	logger  *zap.Logger
}

func NewDispatcher(mailer *Mailer, leadLog *LeadLog, tg *Telegram, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, leadLog: leadLog, tg: tg, logger: logger}
}

// Dispatch delivers the lead to each channel and reports per-channel
// success. The admin alert carries the current lead-log workbook so the
// sheet arrives alongside the notification.
func (d *Dispatcher) Dispatch(lead storage.Lead, payload leads.Payload) map[string]bool {
	status := make(map[string]bool)

	var workbook []byte
	if d.leadLog != nil {
		err := d.leadLog.Append(lead)
		status[ChannelSheet] = err == nil
		if err != nil {
			d.logger.Error("Lead log append failed",
				zap.String("lead_id", lead.ID),
				zap.Error(err))
		} else if workbook, err = os.ReadFile(d.leadLog.Path()); err != nil {
			d.logger.Error("Lead log read failed",
				zap.String("path", d.leadLog.Path()),
				zap.Error(err))
		}
	}

	if d.mailer != nil && d.mailer.Enabled() {
		err := d.mailer.SendLeadAlert(lead, workbook)
		if err == nil && payload.Action == leads.ActionEmail {
			err = d.mailer.SendEstimateCopy(lead)
		}
		status[ChannelEmail] = err == nil
		if err != nil {
			d.logger.Error("Lead email failed",
				zap.String("lead_id", lead.ID),
				zap.Error(err))
		}
	}

	if d.tg != nil {
		err := d.tg.NotifyLead(lead)
		if err == nil && status[ChannelSheet] {
			caption := fmt.Sprintf("Lead log after %s (%s)", lead.Name, lead.Tier)
			err = d.tg.SendLeadLog(d.leadLog.Path(), caption)
		}
		status[ChannelTelegram] = err == nil
	}

	return status
}
