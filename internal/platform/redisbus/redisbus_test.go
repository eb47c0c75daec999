package redisbus

import (
	"context"
	"testing"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := New(nil, Config{Addr: "localhost:6379"}); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestNilBusMethods(t *testing.T) {
	var b *bus
	if err := b.Publish(context.Background(), "ingest_material"); err == nil {
		t.Fatalf("Publish on nil bus: want error")
	}
	if err := b.StartForwarder(context.Background(), func(string) {}); err == nil {
		t.Fatalf("StartForwarder on nil bus: want error")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close on nil bus: %v", err)
	}
}
