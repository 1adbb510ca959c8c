package ingest

import (
	"fmt"
	"strings"
	"testing"
)

func TestNormalizeSplitsOnNewlineOnly(t *testing.T) {
	keys := Normalize("AAAA,BBBB-1111\nCCCC,DDDD-2222")
	if len(keys) != 2 {
		t.Fatalf("keys len want 2 got %d", len(keys))
	}
	if keys[0] != "AAAA,BBBB-1111" {
		t.Fatalf("keys[0] want AAAA,BBBB-1111 got %s", keys[0])
	}
	if keys[1] != "CCCC,DDDD-2222" {
		t.Fatalf("keys[1] want CCCC,DDDD-2222 got %s", keys[1])
	}
}

func TestNormalizeTrimsAndDropsEmptyLines(t *testing.T) {
	keys := Normalize("  a  \n\nb\t\n   \n")
	if len(keys) != 2 {
		t.Fatalf("keys len want 2 got %d", len(keys))
	}
	if keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys want [a b] got %v", keys)
	}
}

func TestNormalizeKeepsDuplicates(t *testing.T) {
	keys := Normalize("SAME-KEY\nSAME-KEY\nSAME-KEY")
	if len(keys) != 3 {
		t.Fatalf("duplicate keys len want 3 got %d", len(keys))
	}
}

func TestNormalizeHandlesCRLF(t *testing.T) {
	keys := Normalize("first\r\nsecond\r\n")
	if len(keys) != 2 || keys[0] != "first" || keys[1] != "second" {
		t.Fatalf("crlf keys want [first second] got %v", keys)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if keys := Normalize(""); len(keys) != 0 {
		t.Fatalf("empty input keys want 0 got %d", len(keys))
	}
	if keys := Normalize("  \n\t\n"); len(keys) != 0 {
		t.Fatalf("blank input keys want 0 got %d", len(keys))
	}
}

func TestChunkReconstructsInput(t *testing.T) {
	keys := make([]string, 0, 103)
	for i := 0; i < 103; i++ {
		keys = append(keys, fmt.Sprintf("KEY-%03d", i))
	}

	batches := Chunk(keys, 10)
	if len(batches) != 11 {
		t.Fatalf("batches len want 11 got %d", len(batches))
	}
	for idx, batch := range batches[:10] {
		if len(batch) != 10 {
			t.Fatalf("batch %d len want 10 got %d", idx, len(batch))
		}
	}
	if len(batches[10]) != 3 {
		t.Fatalf("last batch len want 3 got %d", len(batches[10]))
	}

	var joined []string
	for _, batch := range batches {
		joined = append(joined, batch...)
	}
	if strings.Join(joined, "|") != strings.Join(keys, "|") {
		t.Fatalf("concatenated batches should reconstruct input exactly")
	}
}

func TestChunkExactMultiple(t *testing.T) {
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = fmt.Sprintf("K%d", i)
	}
	batches := Chunk(keys, 50)
	if len(batches) != 2 {
		t.Fatalf("batches len want 2 got %d", len(batches))
	}
	if len(batches[0]) != 50 || len(batches[1]) != 50 {
		t.Fatalf("batch sizes want 50/50 got %d/%d", len(batches[0]), len(batches[1]))
	}
}

func TestChunkEmptyInputAndDefaultSize(t *testing.T) {
	if batches := Chunk(nil, 10); batches != nil {
		t.Fatalf("empty input batches want nil got %v", batches)
	}
	keys := make([]string, DefaultBatchSize+1)
	for i := range keys {
		keys[i] = fmt.Sprintf("K%d", i)
	}
	batches := Chunk(keys, 0)
	if len(batches) != 2 {
		t.Fatalf("default size batches want 2 got %d", len(batches))
	}
	if len(batches[0]) != DefaultBatchSize || len(batches[1]) != 1 {
		t.Fatalf("default size split want %d/1 got %d/%d", DefaultBatchSize, len(batches[0]), len(batches[1]))
	}
}
