package distribution

import (
	"testing"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

func TestSubscribeReceivesDistributedSegment(t *testing.T) {
	m := New(nil)
	m.CreateSession("sess-1")

	sub, err := m.Subscribe("sess-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	seg := segment.New(0, 1, []byte("abc"), false, segment.H264Raw, segment.Live)
	if err := m.DistributeSegment("sess-1", seg); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	select {
	case got := <-sub.Segments():
		if got.ID != seg.ID {
			t.Fatalf("unexpected segment id: %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected to receive distributed segment")
	}
}

func TestSubscribeLateJoinerReceivesCachedKeyframeImmediately(t *testing.T) {
	m := New(nil)
	m.CreateSession("sess-2")

	keyframe := segment.New(0, 1, []byte("keyframe"), true, segment.H264Raw, segment.Live)
	if err := m.DistributeSegment("sess-2", keyframe); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	sub, err := m.Subscribe("sess-2")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case got := <-sub.Segments():
		if !got.Keyframe || got.ID != keyframe.ID {
			t.Fatalf("expected cached keyframe to be delivered immediately, got %+v", got)
		}
	default:
		t.Fatalf("expected cached keyframe to be available without blocking")
	}
}

func TestDistributeSegmentUnknownSessionErrors(t *testing.T) {
	m := New(nil)
	seg := segment.New(0, 1, nil, false, segment.H264Raw, segment.Live)
	if err := m.DistributeSegment("missing", seg); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestUnsubscribeClosesChannelAndRemovesSubscriber(t *testing.T) {
	m := New(nil)
	m.CreateSession("sess-3")
	sub, _ := m.Subscribe("sess-3")

	if m.SubscriberCount("sess-3") != 1 {
		t.Fatalf("expected one subscriber")
	}

	m.Unsubscribe("sess-3", sub)

	if m.SubscriberCount("sess-3") != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
	if _, ok := <-sub.Segments(); ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestCloseSessionDisconnectsSubscribers(t *testing.T) {
	m := New(nil)
	m.CreateSession("sess-4")
	sub, _ := m.Subscribe("sess-4")

	m.CloseSession("sess-4")

	if _, ok := <-sub.Segments(); ok {
		t.Fatalf("expected channel closed after session close")
	}
	if m.ActiveSessions() != 0 {
		t.Fatalf("expected no active sessions after close")
	}
}

func TestDistributeSegmentDropsOnFullSubscriberBuffer(t *testing.T) {
	m := New(nil)
	m.CreateSession("sess-5")
	sub, _ := m.Subscribe("sess-5")

	for i := 0; i < defaultSubscriberBuffer+10; i++ {
		seg := segment.New(float64(i), 1, []byte("x"), false, segment.H264Raw, segment.Live)
		if err := m.DistributeSegment("sess-5", seg); err != nil {
			t.Fatalf("distribute: %v", err)
		}
	}

	// Should not deadlock or error; some segments were necessarily dropped.
	count := 0
	for {
		select {
		case <-sub.Segments():
			count++
		default:
			if count == 0 {
				t.Fatalf("expected at least some segments to be buffered")
			}
			return
		}
	}
}
