package cache

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	hash := ModuleHash([]byte("fake module bytes"))
	if err := c.Put(hash, 3, KindPseudo, "function f@3() { return; }"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	content, found, err := c.Get(hash, 3, KindPseudo)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if content != "function f@3() { return; }" {
		t.Errorf("got %q", content)
	}

	if _, found, err := c.Get(hash, 4, KindPseudo); err != nil || found {
		t.Errorf("expected a miss for an unwritten func index, found=%v err=%v", found, err)
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	c, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	hash := ModuleHash([]byte("m"))
	if err := c.Put(hash, 0, KindDisasm, "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(hash, 0, KindDisasm, "second"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	content, found, err := c.Get(hash, 0, KindDisasm)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if content != "second" {
		t.Errorf("expected overwritten content, got %q", content)
	}
}

func TestStatsCountsByKind(t *testing.T) {
	c, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	hash := ModuleHash([]byte("m"))
	c.Put(hash, 0, KindPseudo, "a")
	c.Put(hash, 1, KindPseudo, "b")
	c.Put(hash, 0, KindDisasm, "c")

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[KindPseudo] != 2 || stats[KindDisasm] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestOpenRejectsUnknownDBType(t *testing.T) {
	if _, err := Open("oracle", "dsn"); err == nil {
		t.Fatal("expected an error for an unsupported database type")
	}
}
