package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

func TestFlushOutboxDeliversBookingEvents(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	f.holdAndConfirm(t, load, bid, 950.00)

	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("FlushOutbox: %v", err)
	}

	dom := f.pub.DomainEvents()
	if len(dom) != 1 || dom[0].EventType != domain.EventLoadBooked {
		t.Fatalf("domain events: %+v", dom)
	}
	if dom[0].PartitionKey != load.LoadID {
		t.Fatalf("partition key: %s", dom[0].PartitionKey)
	}
	ana := f.pub.AnalyticsEvents()
	if len(ana) != 1 || ana[0].EventType != domain.EventPaymentHeld {
		t.Fatalf("analytics events: %+v", ana)
	}

	// Everything sent, so a second flush publishes nothing new.
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("FlushOutbox rerun: %v", err)
	}
	if len(f.pub.DomainEvents()) != 1 || len(f.pub.AnalyticsEvents()) != 1 {
		t.Fatal("flush redelivered sent events")
	}
}

func TestFlushOutboxRetriesFailedDomainPublish(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	f.holdAndConfirm(t, load, bid, 950.00)

	f.pub.FailDomain = errors.New("broker unavailable")
	if err := f.svc.FlushOutbox(context.Background()); err == nil {
		t.Fatal("flush should surface publish failure")
	}
	if len(f.pub.DomainEvents()) != 0 {
		t.Fatal("failed publish recorded an event")
	}

	f.pub.FailDomain = nil
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("FlushOutbox retry: %v", err)
	}
	dom := f.pub.DomainEvents()
	if len(dom) != 1 || dom[0].EventType != domain.EventLoadBooked {
		t.Fatalf("retry did not deliver: %+v", dom)
	}
}
