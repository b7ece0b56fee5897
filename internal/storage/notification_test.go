package storage

import "testing"

func TestObjectKeys(t *testing.T) {
	t.Parallel()

	t.Run("extracts keys in record order", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"Records": [
			{"s3": {"object": {"key": "whatsapp_summary_2025-03-09-14-30-05.json"}}},
			{"s3": {"object": {"key": "whatsapp_summary_2025-03-09-20-00-00.json"}}}
		]}`)

		keys, err := ObjectKeys(body)
		if err != nil {
			t.Fatalf("ObjectKeys failed: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("expected 2 keys, got %d", len(keys))
		}
		if keys[0] != "whatsapp_summary_2025-03-09-14-30-05.json" {
			t.Fatalf("unexpected first key %q", keys[0])
		}
	})

	t.Run("skips records without a key", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"Records": [{"s3": {"object": {}}}, {"s3": {"object": {"key": "a.json"}}}]}`)
		keys, err := ObjectKeys(body)
		if err != nil {
			t.Fatalf("ObjectKeys failed: %v", err)
		}
		if len(keys) != 1 || keys[0] != "a.json" {
			t.Fatalf("unexpected keys %#v", keys)
		}
	})

	t.Run("no records yields an empty list", func(t *testing.T) {
		t.Parallel()

		keys, err := ObjectKeys([]byte(`{}`))
		if err != nil {
			t.Fatalf("ObjectKeys failed: %v", err)
		}
		if len(keys) != 0 {
			t.Fatalf("expected no keys, got %#v", keys)
		}
	})

	t.Run("invalid JSON fails", func(t *testing.T) {
		t.Parallel()

		if _, err := ObjectKeys([]byte("not json")); err == nil {
			t.Fatal("expected a decode error")
		}
	})
}
