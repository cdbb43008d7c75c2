package worker

import (
	"context"
	"testing"

	"github.com/haoche-next/internal/provider"
	"github.com/haoche-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandlePaymentExpireRejectsMalformedPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskPaymentExpire, []byte("not-json"))
	if err := consumer.handlePaymentExpire(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandlePaymentExpireSkipsZeroPaymentID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskPaymentExpire, []byte(`{"payment_id":0}`))
	if err := consumer.handlePaymentExpire(context.Background(), task); err != nil {
		t.Fatalf("expected zero payment id to be skipped, got %v", err)
	}
}

func TestHandleOrderTimeoutCancelSkipsNilService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte(`{"order_id":42}`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("expected nil order service to be skipped, got %v", err)
	}
}
