package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/forge"

	"github.com/cladams7905/zencourt-sub006/id"
	"github.com/cladams7905/zencourt-sub006/stream"
)

// streamEvents serves lifecycle events as server-sent events. The topic
// query parameter takes a comma separated list such as
// "render:rnd_123,video:v1" and defaults to the firehose. The type
// parameter narrows delivery to the listed event types.
func (a *API) streamEvents(ctx forge.Context, sse forge.Stream) error {
	topics, err := stream.ParseTopics(ctx.Query("topic"))
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	var filter stream.Filter
	if raw := ctx.Query("type"); raw != "" {
		var types []stream.EventType
		for _, t := range strings.Split(raw, ",") {
			types = append(types, stream.EventType(strings.TrimSpace(t)))
		}
		filter = stream.OnlyTypes(types...)
	}

	subID := "sse-" + id.NewSubscriberID().String()
	sub := a.eng.Broker().SubscribeFiltered(subID, filter, topics...)
	defer a.eng.Broker().RemoveSubscriber(subID)

	a.eng.Logger().Debug("event stream opened",
		slog.String("subscriber", subID),
		slog.Any("topics", topics),
	)

	for {
		select {
		case evt, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := sse.SendJSON(string(evt.Type), evt); err != nil {
				return err
			}
			if err := sse.Flush(); err != nil {
				return err
			}
			sub.AddCredits(1)
		case <-sse.Context().Done():
			return nil
		}
	}
}
