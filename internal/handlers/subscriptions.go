package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/validation"
)

// SubscriptionHandler implements the subscription toggle and listings.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
	Stats         StatsProvider
	Locks         Locker
}

type subscriptionResponse struct {
	Subscribed       bool  `json:"subscribed"`
	SubscribersCount int64 `json:"subscribersCount"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	if channelID == actor {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "you cannot subscribe to your own channel"), "channel")
		return
	}
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		writeError(ctx, w, err, "channel")
		return
	}

	var resp subscriptionResponse
	err = withLock(ctx, h.Locks, "subscription:"+actor+":"+channelID, func() error {
		subscribed, err := h.Subscriptions.Toggle(ctx, actor, channelID)
		if err != nil {
			return err
		}
		count, err := h.Subscriptions.CountSubscribers(ctx, channelID)
		if err != nil {
			return err
		}
		resp = subscriptionResponse{Subscribed: subscribed, SubscribersCount: count}
		return nil
	})
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	if h.Stats != nil {
		h.Stats.Invalidate(channelID)
	}

	logging.FromContext(ctx).Info("subscription toggled", "channel_id", channelID, "subscribed", resp.Subscribed)
	message := "unsubscribed successfully"
	if resp.Subscribed {
		message = "subscribed successfully"
	}
	respondOK(ctx, w, http.StatusOK, resp, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		writeError(ctx, w, err, "channel")
		return
	}

	page, err := h.Subscriptions.Subscribers(ctx, channelID, sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if _, err := h.Users.FindByID(ctx, subscriberID); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	page, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID, sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "subscribed channels fetched successfully")
}
