package cloud

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

const notifyTimeout = 5 * time.Second

// EnforcementNotifier forwards enforcements to SNS and DynamoDB. Either
// client may be nil. Failures are logged and never reach the engine.
type EnforcementNotifier struct {
	sns     *SNSClient
	archive *DynamoDBClient
	log     zerolog.Logger
}

func NewEnforcementNotifier(sns *SNSClient, archive *DynamoDBClient, log zerolog.Logger) *EnforcementNotifier {
	return &EnforcementNotifier{sns: sns, archive: archive, log: log}
}

func (n *EnforcementNotifier) Enforced(ctx context.Context, e domain.EnforcementLogEntry) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if n.archive != nil {
		if err := n.archive.PutEnforcement(ctx, e); err != nil {
			n.log.Error().Err(err).Int64("log_id", e.ID).Msg("failed to archive enforcement")
		}
	}
	if n.sns != nil {
		id, err := n.sns.SendEnforcementAlert(ctx, e)
		if err != nil {
			n.log.Error().Err(err).Int64("log_id", e.ID).Msg("failed to send enforcement alert")
			return
		}
		n.log.Debug().Str("message_id", id).Msg("enforcement alert sent")
	}
}
