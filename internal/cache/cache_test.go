package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("u1", "dashboard:all"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("u1", "dashboard:all", 42)

	v, ok := c.Get("u1", "dashboard:all")

	if !ok {
		t.Fatal("expected hit")
	}

	if v.(int) != 42 {
		t.Fatalf("got %v", v)
	}

	// other users never see each other's entries
	if _, ok := c.Get("u2", "dashboard:all"); ok {
		t.Fatal("expected miss for a different user")
	}
}

func TestInvalidateDropsWholeBucket(t *testing.T) {
	c := New(time.Minute)

	c.Set("u1", "dashboard:all", 1)
	c.Set("u1", "dashboard:FOOD", 2)
	c.Set("u2", "dashboard:all", 3)

	c.Invalidate("u1")

	if _, ok := c.Get("u1", "dashboard:all"); ok {
		t.Fatal("expected u1 entries gone")
	}
	if _, ok := c.Get("u1", "dashboard:FOOD"); ok {
		t.Fatal("expected u1 entries gone")
	}
	if _, ok := c.Get("u2", "dashboard:all"); !ok {
		t.Fatal("u2 must be untouched")
	}
}

func TestEntriesExpire(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("u1", "k", "v")

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("u1", "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}
