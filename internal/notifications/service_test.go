package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

func TestAddAndList(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	first, err := svc.Add(ctx, "coffee-corner", Notification{
		Type:      enums.NotificationTypePaymentReceived,
		Title:     "Payment received",
		Message:   "5 SOL for prod-1",
		Signature: "sig-1",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID == uuid.Nil || first.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", first)
	}

	items, err := svc.List(ctx, "coffee-corner", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Signature != "sig-1" {
		t.Fatalf("unexpected items %+v", items)
	}

	if items, _ := svc.List(ctx, "other-store", false); len(items) != 0 {
		t.Fatalf("notifications must be scoped per storefront")
	}
}

func TestMarkReadFlow(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	n, err := svc.Add(ctx, "coffee-corner", Notification{Type: enums.NotificationTypePaymentReceived, Title: "a"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, "coffee-corner", Notification{Type: enums.NotificationTypePaymentUnknown, Title: "b"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.MarkRead(ctx, "coffee-corner", n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := svc.List(ctx, "coffee-corner", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "b" {
		t.Fatalf("expected only unread item b, got %+v", unread)
	}

	count, err := svc.MarkAllRead(ctx, "coffee-corner")
	if err != nil || count != 1 {
		t.Fatalf("mark all read count=%d err=%v", count, err)
	}

	if err := svc.MarkRead(ctx, "coffee-corner", uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
