package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(TopicCoverAvailable)
	defer unsub()

	b.Publish(TopicCoverAvailable, "song://a")

	select {
	case ev := <-ch:
		if ev.Payload != "song://a" {
			t.Fatalf("payload = %v, want song://a", ev.Payload)
		}
	default:
		t.Fatal("expected event, got none")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(TopicError)
	unsub()
	b.Publish(TopicError, "boom")

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed with no delivery after unsubscribe")
	}
}

func TestDistinctTopicsNoCrossTalk(t *testing.T) {
	b := New()
	coverCh, unsub1 := b.Subscribe(TopicCoverAvailable)
	defer unsub1()
	metaCh, unsub2 := b.Subscribe(TopicAlbumMeta)
	defer unsub2()

	b.Publish(TopicCoverAvailable, "cover")

	select {
	case <-metaCh:
		t.Fatal("album-meta subscriber should not receive cover-available event")
	default:
	}
	select {
	case ev := <-coverCh:
		if ev.Topic != TopicCoverAvailable {
			t.Fatalf("topic = %v", ev.Topic)
		}
	default:
		t.Fatal("expected cover-available event")
	}
}
