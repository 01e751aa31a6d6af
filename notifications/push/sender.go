// SPDX-License-Identifier: MIT

package push

import (
	"context"

	fcm "firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/log"
)

// sendBatch issues exactly one multicast call for the given device tokens and
// maps the transport's per-token responses back onto them by positional
// index. The returned outcomes always have the same length and order as the
// (truncated) input. A batch-level transport failure marks every outcome
// failed with an unknown reason; it is not retried.
func (p *push) sendBatch(ctx context.Context, deviceTokens []DeviceToken, notif *Notification) ([]sendOutcome, error) {
	if len(deviceTokens) == 0 {
		return nil, nil
	}
	if len(deviceTokens) > maxBatchSize {
		log.Warn("device token count exceeds the transport's batch ceiling, truncating",
			"package", p.applicationYAMLKey, "count", len(deviceTokens), "max", maxBatchSize)
		deviceTokens = deviceTokens[:maxBatchSize]
	}
	tokens := make([]string, 0, len(deviceTokens))
	for _, deviceToken := range deviceTokens {
		tokens = append(tokens, string(deviceToken))
	}
	batchResponse, err := p.client.SendEachForMulticast(ctx, &fcm.MulticastMessage{
		Tokens: tokens,
		Data:   notif.Data,
		Notification: &fcm.Notification{
			Title: notif.Title,
			Body:  notif.Body,
		},
	})
	if err != nil {
		batchErr := errors.Wrapf(err, "[%v] failed to send multicast batch of %v notification(s)", p.applicationYAMLKey, len(deviceTokens))
		log.Error(batchErr)
		outcomes := make([]sendOutcome, 0, len(deviceTokens))
		for _, deviceToken := range deviceTokens {
			outcomes = append(outcomes, sendOutcome{deviceToken: deviceToken, err: err, kind: failureUnknown})
		}

		return outcomes, batchErr
	}
	outcomes := make([]sendOutcome, 0, len(deviceTokens))
	for idx, response := range batchResponse.Responses {
		outcome := sendOutcome{deviceToken: deviceTokens[idx]}
		if response.Success {
			outcome.success = true
			outcome.messageID = response.MessageID
		} else {
			outcome.err = response.Error
			outcome.kind = classifyFailure(response.Error)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
