package notify

import (
	"encoding/json"
	"testing"
)

type recordingBroadcaster struct {
	messages [][]byte
}

func (r *recordingBroadcaster) Broadcast(data []byte) {
	r.messages = append(r.messages, data)
}

func TestNotifier_Funded_EmitsExpectedShape(t *testing.T) {
	rec := &recordingBroadcaster{}
	n := New(rec)

	n.Funded("txn-1", "trader-1", "TXN-ABC123", "exact")

	if len(rec.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rec.messages))
	}
	var e Event
	if err := json.Unmarshal(rec.messages[0], &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Type != "funded" || e.TransactionID != "txn-1" || e.Detail != "exact" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestNotifier_Held_Matched_Expired(t *testing.T) {
	rec := &recordingBroadcaster{}
	n := New(rec)

	n.Held("t1", "tr1", "REF1")
	n.Matched("t2", "tr2", "multi")
	n.Expired("t3", "tr3")

	if len(rec.messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(rec.messages))
	}

	var held, matched, expired Event
	json.Unmarshal(rec.messages[0], &held)
	json.Unmarshal(rec.messages[1], &matched)
	json.Unmarshal(rec.messages[2], &expired)

	if held.Type != "held" || matched.Type != "matched" || expired.Type != "expired" {
		t.Errorf("unexpected types: %s %s %s", held.Type, matched.Type, expired.Type)
	}
}

func TestNoOp_DiscardsWithoutPanic(t *testing.T) {
	n := New(NoOp{})
	n.Funded("t", "tr", "REF", "exact")
}
