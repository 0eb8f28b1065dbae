package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want OrderStatus
	}{
		{"ORDER_PLACED", StatusOrderPlaced},
		{"shipped", StatusShipped},
		{"out-for-delivery", StatusOutForDelivery},
		{" Out for Delivery ", StatusOutForDelivery},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStatus("RETURNED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name       string
		from, to   OrderStatus
		correction bool
		wantErr    error
	}{
		{name: "next step", from: StatusOrderPlaced, to: StatusConfirmed},
		{name: "shipped to delivered", from: StatusShipped, to: StatusDelivered},
		{name: "skip ahead", from: StatusOrderPlaced, to: StatusShipped, wantErr: ErrIllegalTransition},
		{name: "backwards", from: StatusShipped, to: StatusPacked, wantErr: ErrIllegalTransition},
		{name: "backwards with correction", from: StatusShipped, to: StatusPacked, correction: true},
		{name: "out of terminal with correction", from: StatusDelivered, to: StatusShipped, correction: true},
		{name: "out of terminal", from: StatusDelivered, to: StatusShipped, wantErr: ErrIllegalTransition},
		{name: "same status", from: StatusPacked, to: StatusPacked, wantErr: ErrSameStatus},
		{name: "same status with correction", from: StatusPacked, to: StatusPacked, correction: true, wantErr: ErrSameStatus},
		{name: "unknown target", from: StatusPacked, to: OrderStatus("LOST"), correction: true, wantErr: ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to, tt.correction)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Out for Delivery", StatusOutForDelivery.Label())
	assert.Equal(t, "Order Placed", StatusOrderPlaced.Label())
	assert.Equal(t, 5, StatusDelivered.Position())
	assert.Equal(t, -1, OrderStatus("X").Position())
}
