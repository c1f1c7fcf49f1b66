package terraincache

import (
	"errors"
	"os"
	"testing"
)

func TestLoad_GeneratesThenHits(t *testing.T) {
	dir := t.TempDir()

	first, hit, err := Load(dir, 33, 8000, 8000)
	if err != nil || hit {
		t.Fatalf("first Load hit=%v err=%v", hit, err)
	}
	if _, err := os.Stat(Path(dir, KeyFor(33, 8000, 8000))); err != nil {
		t.Fatalf("cache file: %v", err)
	}

	second, hit, err := Load(dir, 33, 8000, 8000)
	if err != nil || !hit {
		t.Fatalf("second Load hit=%v err=%v", hit, err)
	}
	if second.Resolution != first.Resolution || second.WorldSize != first.WorldSize {
		t.Fatalf("header mismatch: %+v vs %+v", second, first)
	}
	for i := range first.Samples {
		if first.Samples[i] != second.Samples[i] {
			t.Fatalf("sample %d: %d != %d", i, second.Samples[i], first.Samples[i])
		}
	}
}

func TestRead_RejectsOtherKey(t *testing.T) {
	dir := t.TempDir()
	k := KeyFor(17, 4000, 4000)
	hm, _, err := Load(dir, k.Resolution, k.Width, k.Height)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	path := Path(dir, k)
	other := k
	other.Version++
	if _, err := Read(path, other); !errors.Is(err, ErrStale) {
		t.Fatalf("Read with other key = %v, want ErrStale", err)
	}
	if err := Write(path, k, hm); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, err := Read(path, k); err != nil {
		t.Fatalf("Read after rewrite: %v", err)
	}
}

func TestRead_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.bin.zst"
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path, KeyFor(33, 1, 1)); err == nil {
		t.Fatalf("corrupt file accepted")
	}
}
