package linking

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Link codes are five digits so players can read them off the
// disconnect screen and type them into Discord.
const (
	codeMin = 10000
	codeMax = 99999
)

// CodeTable holds pending link codes in memory only. A restart drops
// every pending code, which is acceptable: the player just runs /link
// again and gets a fresh one.
type CodeTable struct {
	mu       sync.Mutex
	byPlayer map[uuid.UUID]int
	byCode   map[int]uuid.UUID
}

func NewCodeTable() *CodeTable {
	return &CodeTable{
		byPlayer: make(map[uuid.UUID]int),
		byCode:   make(map[int]uuid.UUID),
	}
}

// IssueOrGet returns the pending code for minecraftID, minting one if
// none exists. Repeated calls before redemption return the same code.
func (t *CodeTable) IssueOrGet(minecraftID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if code, ok := t.byPlayer[minecraftID]; ok {
		return code
	}

	// Reject colliding draws. With 90000 possible codes and at most a
	// handful of players linking at once this terminates immediately
	// in practice.
	code := randomCode()
	for {
		if _, taken := t.byCode[code]; !taken {
			break
		}
		code = randomCode()
	}

	t.byPlayer[minecraftID] = code
	t.byCode[code] = minecraftID
	return code
}

// Resolve looks up the player a pending code belongs to.
func (t *CodeTable) Resolve(code int) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byCode[code]
	return id, ok
}

// Consume drops the pending code for minecraftID, if any. Called after
// a successful redemption.
func (t *CodeTable) Consume(minecraftID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if code, ok := t.byPlayer[minecraftID]; ok {
		delete(t.byPlayer, minecraftID)
		delete(t.byCode, code)
	}
}

func randomCode() int {
	return codeMin + rand.IntN(codeMax-codeMin+1)
}
