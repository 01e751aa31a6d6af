// SPDX-License-Identifier: MIT

package push

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/log"
)

// reconcile removes permanently invalid device tokens from the registration
// store. Every removal is independent and best effort: one failed removal
// never stops the rest, and no failure here changes the dispatch result.
func (p *push) reconcile(ctx context.Context, userID string, invalidTokens []DeviceToken) {
	for _, deviceToken := range invalidTokens {
		if err := p.tokenStore.RemoveDeviceToken(ctx, userID, string(deviceToken)); err != nil {
			log.Error(errors.Wrapf(err, "[%v] failed to remove invalid device token for userID:%v", p.applicationYAMLKey, userID))

			continue
		}
		log.Info("removed permanently invalid device token", "package", p.applicationYAMLKey, "userId", userID)
	}
}
