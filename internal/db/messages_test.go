package db

import "testing"

func TestMessages(t *testing.T) {
	db := openTestDB(t)

	keyID, err := CreateAPIKey(db, "abc123def456", []byte("hash"), "")
	if err != nil {
		t.Fatal(err)
	}

	for _, body := range []string{"first", "second", "third"} {
		if _, err := RecordMessage(db, keyID, body); err != nil {
			t.Fatalf("RecordMessage(%q): %v", body, err)
		}
	}
	if _, err := RecordMessage(db, 0, "from stdin"); err != nil {
		t.Fatalf("RecordMessage without key: %v", err)
	}

	msgs, err := ListMessages(db, 3)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Body != "from stdin" || msgs[0].APIKeyID != nil {
		t.Errorf("newest = %+v", msgs[0])
	}
	if msgs[1].APIKeyID == nil || *msgs[1].APIKeyID != keyID {
		t.Errorf("msgs[1].APIKeyID = %v, want %d", msgs[1].APIKeyID, keyID)
	}
	if msgs[2].Body != "second" {
		t.Errorf("msgs[2].Body = %q, want second", msgs[2].Body)
	}
}
