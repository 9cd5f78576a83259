package api

import (
	"net/http"

	"github.com/dicomflow/upsrs/internal/service"
)

// HandleSubscribe creates (or refreshes) a subscription of an AE to a
// work item, the global target, or the filtered global target. The
// response's Content-Location names the websocket push endpoint the
// subscriber should connect to.
func HandleSubscribe(svc *service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.PathValue("target")
		subscriber := r.PathValue("aet")
		deletionLock := parseBoolParam(r.URL.Query().Get("deletionlock"))

		filter, err := parseFilter(r.URL.Query().Get("filter"))
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}

		sub, err := svc.Create(target, subscriber, deletionLock, filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		pushURL, err := PushURL(r, sub.SubscriberID)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		w.Header().Set("Content-Location", pushURL)
		w.WriteHeader(http.StatusCreated)
	}
}

// HandleUnsubscribe removes a subscription.
func HandleUnsubscribe(svc *service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.PathValue("target"), r.PathValue("aet")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleSuspend suspends a global subscription. The row stays behind,
// marked suspended, so existing work items stop producing deliveries
// without losing the deletion-lock bookkeeping.
func HandleSuspend(svc *service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Suspend(r.PathValue("target"), r.PathValue("aet")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
