package order

import (
	"testing"
	"time"
)

func TestBookSetGetList(t *testing.T) {
	b := NewBook()
	at := time.Unix(100, 0)
	b.Set(RecordOf("2", NewInserted()))
	b.Set(RecordOf("1", NewInsertPending(at)))
	got, ok := b.Get("1")
	if !ok || got.State != TagInsertPending || got.RequestSentAt == nil || !got.RequestSentAt.Equal(at) {
		t.Fatalf("get failed: %+v %v", got, ok)
	}
	list := b.List()
	if len(list) != 2 || list[0].OrderID != "1" {
		t.Fatalf("unexpected list: %+v", list)
	}
	counts := b.CountByState()
	if counts[TagInserted] != 1 || counts[TagInsertPending] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	b.Delete("1")
	if _, ok := b.Get("1"); ok {
		t.Fatalf("expected record removed")
	}
}
