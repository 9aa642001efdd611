package telegram

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"

	"planner/internal/transport"
)

func TestDeliveryErrorMarksOnlyUnsentMessages(t *testing.T) {
	t.Parallel()
	rejected := &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	network := errors.New("read tcp: connection reset by peer")

	cases := []struct {
		name         string
		sent         int
		err          error
		notDelivered bool
	}{
		{"api rejected first chunk", 0, rejected, true},
		{"canceled before first chunk", 0, context.Canceled, true},
		{"network error may hide a delivery", 0, network, false},
		{"timeout may hide a delivery", 0, context.DeadlineExceeded, false},
		{"second chunk rejected", 1, rejected, false},
		{"second chunk network error", 1, network, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := deliveryError(tc.sent, tc.err)
			if !errors.Is(got, tc.err) {
				t.Fatalf("cause lost: %v", got)
			}
			if errors.Is(got, transport.ErrNotDelivered) != tc.notDelivered {
				t.Fatalf("ErrNotDelivered = %v, want %v (err %v)", !tc.notDelivered, tc.notDelivered, got)
			}
		})
	}
}
