// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/aurora-mobile/pushgate/server"
)

// @title						Push Notification Dispatch API
// @version					latest
// @description				API for dispatching push notifications to a user's registered devices.
// @query.collection.format	multi
// @schemes					https
// @contact.name				Aurora Mobile
// @BasePath					/
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.New(new(service), applicationYamlKey, swaggerRoot).ListenAndServe(ctx, cancel)
}
