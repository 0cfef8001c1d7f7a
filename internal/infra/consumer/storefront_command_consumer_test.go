package consumer

import (
	"encoding/json"
	"testing"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/service"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestCommandType(t *testing.T) {
	msg := kafka.Message{
		Headers: []kafka.Header{
			{Key: "trace_id", Value: []byte("abc")},
			{Key: "command_type", Value: []byte("checkout")},
		},
	}
	require.Equal(t, CommandCheckout, commandType(msg))

	require.Equal(t, CommandType(""), commandType(kafka.Message{}))
}

func TestCheckoutCommandDecode(t *testing.T) {
	payload := []byte(`{"session_key":"sess-1","cart_id":"cart-1","user_id":7}`)

	var cmd CheckoutCommand
	require.NoError(t, json.Unmarshal(payload, &cmd))
	require.Equal(t, "sess-1", cmd.SessionKey)
	require.Equal(t, "cart-1", cmd.CartID)
	require.Equal(t, 7, cmd.UserID)
}

func TestPaymentStatusReportDecode(t *testing.T) {
	payload := []byte(`{"order_id":"o-1","status":"CAPTURED","transaction_id":"TX-9"}`)

	var report service.PaymentStatusReport
	require.NoError(t, json.Unmarshal(payload, &report))
	require.Equal(t, "o-1", report.OrderID)
	require.Equal(t, model.PaymentStatusCaptured, report.Status)
	require.Equal(t, "TX-9", report.TransactionID)
}
