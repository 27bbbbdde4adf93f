package linking

import (
	"testing"

	"github.com/google/uuid"
)

func TestIssueOrGetIdempotent(t *testing.T) {
	table := NewCodeTable()
	player := uuid.New()

	first := table.IssueOrGet(player)
	second := table.IssueOrGet(player)
	if first != second {
		t.Fatalf("repeated IssueOrGet returned %d then %d", first, second)
	}
}

func TestIssueOrGetRange(t *testing.T) {
	table := NewCodeTable()
	for i := 0; i < 500; i++ {
		code := table.IssueOrGet(uuid.New())
		if code < codeMin || code > codeMax {
			t.Fatalf("code %d outside [%d, %d]", code, codeMin, codeMax)
		}
	}
}

func TestCodesUniqueAcrossPlayers(t *testing.T) {
	table := NewCodeTable()
	seen := make(map[int]uuid.UUID)
	for i := 0; i < 1000; i++ {
		player := uuid.New()
		code := table.IssueOrGet(player)
		if other, dup := seen[code]; dup {
			t.Fatalf("code %d issued to both %s and %s", code, other, player)
		}
		seen[code] = player
	}
}

func TestResolve(t *testing.T) {
	table := NewCodeTable()
	player := uuid.New()
	code := table.IssueOrGet(player)

	got, ok := table.Resolve(code)
	if !ok || got != player {
		t.Fatalf("Resolve(%d) = %s, %v; want %s, true", code, got, ok, player)
	}

	if _, ok := table.Resolve(code + 1); ok {
		t.Errorf("Resolve(%d) resolved a code that was never issued", code+1)
	}
}

func TestConsume(t *testing.T) {
	table := NewCodeTable()
	player := uuid.New()
	code := table.IssueOrGet(player)

	table.Consume(player)
	if _, ok := table.Resolve(code); ok {
		t.Fatalf("code %d still resolves after Consume", code)
	}

	// A fresh request after consumption mints a new pending code.
	if again := table.IssueOrGet(player); again < codeMin || again > codeMax {
		t.Fatalf("re-issued code %d outside range", again)
	}

	// Consuming a player with no pending code is a no-op.
	table.Consume(uuid.New())
}
