package fieldbridge

import (
	"errors"
	"testing"

	"github.com/vexide/autons/compete"
)

func phaseEvent(id string, seq int64, phase string) Event {
	return Event{Version: EventSchemaVersion, EventID: id, Sequence: seq, Type: TypePhase, Phase: phase}
}

func TestFeedDeliversInOrder(t *testing.T) {
	feed := NewFeed()
	for i, phase := range []string{"autonomous", "disabled", "driver"} {
		if err := feed.HandleEvent(phaseEvent(string(rune('a'+i)), int64(i+1), phase)); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	want := []compete.Phase{compete.PhaseAutonomous, compete.PhaseDisabled, compete.PhaseDriverControl}
	for _, w := range want {
		if got := <-feed.Phases(); got != w {
			t.Fatalf("expected %s, got %s", w, got)
		}
	}
}

func TestFeedDedupeByEventID(t *testing.T) {
	feed := NewFeed()
	event := phaseEvent("evt-1", 0, "autonomous")
	_ = feed.HandleEvent(event)
	_ = feed.HandleEvent(event)
	select {
	case got := <-feed.Phases():
		if got != compete.PhaseAutonomous {
			t.Fatalf("unexpected phase: %s", got)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case extra := <-feed.Phases():
		t.Fatalf("expected dedupe, got extra %s", extra)
	default:
	}
}

func TestFeedDropsStaleSequences(t *testing.T) {
	feed := NewFeed()
	_ = feed.HandleEvent(phaseEvent("b", 5, "driver"))
	_ = feed.HandleEvent(phaseEvent("a", 4, "autonomous"))
	if got := <-feed.Phases(); got != compete.PhaseDriverControl {
		t.Fatalf("unexpected phase %s", got)
	}
	select {
	case extra := <-feed.Phases():
		t.Fatalf("stale event delivered: %s", extra)
	default:
	}
}

func TestFeedOverflowKeepsNewest(t *testing.T) {
	feed := NewFeed(FeedWithCapacity(2))
	_ = feed.HandleEvent(phaseEvent("a", 1, "autonomous"))
	_ = feed.HandleEvent(phaseEvent("b", 2, "disabled"))
	_ = feed.HandleEvent(phaseEvent("c", 3, "driver"))

	first, second := <-feed.Phases(), <-feed.Phases()
	if first != compete.PhaseDisabled || second != compete.PhaseDriverControl {
		t.Fatalf("expected disabled, driver; got %s, %s", first, second)
	}
}

func TestFeedDisconnectCloses(t *testing.T) {
	feed := NewFeed()
	_ = feed.HandleEvent(phaseEvent("a", 1, "autonomous"))
	if err := feed.HandleEvent(Event{Version: EventSchemaVersion, EventID: "b", Sequence: 2, Type: TypeDisconnect}); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if got, ok := <-feed.Phases(); !ok || got != compete.PhaseAutonomous {
		t.Fatalf("queued phase lost on disconnect")
	}
	if _, ok := <-feed.Phases(); ok {
		t.Fatalf("expected closed channel")
	}
	if err := feed.HandleEvent(phaseEvent("c", 3, "driver")); !errors.Is(err, ErrFeedClosed) {
		t.Fatalf("expected ErrFeedClosed, got %v", err)
	}
	feed.Close()
}
