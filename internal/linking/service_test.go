package linking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(openTestStore(t), NewCodeTable(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRedeemFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	discordID := uint64(100)

	code, err := svc.RequestCode(ctx, player)
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	// Requesting again before redemption returns the same code.
	again, err := svc.RequestCode(ctx, player)
	if err != nil || again != code {
		t.Fatalf("second RequestCode = %d, %v; want %d, nil", again, err, code)
	}

	got, err := svc.Redeem(ctx, code, discordID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if got != player {
		t.Fatalf("Redeem returned %s, want %s", got, player)
	}

	// Both directions of the link are now visible.
	if dc, ok, _ := svc.DiscordFor(ctx, player); !ok || dc != discordID {
		t.Fatalf("DiscordFor = %d, %v; want %d, true", dc, ok, discordID)
	}
	if mc, ok, _ := svc.MinecraftFor(ctx, discordID); !ok || mc != player {
		t.Fatalf("MinecraftFor = %s, %v; want %s, true", mc, ok, player)
	}

	// The code is consumed.
	if _, err := svc.Redeem(ctx, code, 200); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("redeeming a consumed code = %v; want ErrCodeNotFound", err)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Redeem(context.Background(), 12345, 1); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("Redeem = %v; want ErrCodeNotFound", err)
	}
}

func TestRedeemMinecraftAlreadyLinked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}

	// Issue a fresh code for the already linked player by writing to
	// the table directly, mimicking a stale pending code.
	stale := svc.codes.IssueOrGet(player)
	if _, err := svc.Redeem(ctx, stale, 2); !errors.Is(err, ErrMinecraftAlreadyLinked) {
		t.Fatalf("Redeem = %v; want ErrMinecraftAlreadyLinked", err)
	}

	// The original link is untouched.
	if dc, ok, _ := svc.DiscordFor(ctx, player); !ok || dc != 1 {
		t.Fatalf("link changed: %d, %v", dc, ok)
	}
}

func TestRedeemDiscordAlreadyLinked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := uuid.New()
	code, _ := svc.RequestCode(ctx, first)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}

	second := uuid.New()
	code2, _ := svc.RequestCode(ctx, second)
	if _, err := svc.Redeem(ctx, code2, 1); !errors.Is(err, ErrDiscordAlreadyLinked) {
		t.Fatalf("Redeem = %v; want ErrDiscordAlreadyLinked", err)
	}

	// The existing link must be unchanged and the second player must
	// remain unlinked.
	if mc, ok, _ := svc.MinecraftFor(ctx, 1); !ok || mc != first {
		t.Fatalf("link changed: %s, %v", mc, ok)
	}
	if _, ok, _ := svc.DiscordFor(ctx, second); ok {
		t.Fatal("second player unexpectedly linked")
	}
}

func TestRequestCodeRefusedWhenLinked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if _, err := svc.RequestCode(ctx, player); !errors.Is(err, ErrMinecraftAlreadyLinked) {
		t.Fatalf("RequestCode after linking = %v; want ErrMinecraftAlreadyLinked", err)
	}
}

func TestUnlinkPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	// A stranger without moderation permission may not unlink.
	if err := svc.UnlinkDiscord(ctx, 1, 2, false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("UnlinkDiscord = %v; want ErrPermissionDenied", err)
	}
	if _, ok, _ := svc.MinecraftFor(ctx, 1); !ok {
		t.Fatal("link removed despite permission denial")
	}

	// Self-unlink works.
	if err := svc.UnlinkDiscord(ctx, 1, 1, false); err != nil {
		t.Fatalf("self unlink: %v", err)
	}
	if _, ok, _ := svc.MinecraftFor(ctx, 1); ok {
		t.Fatal("link still present after self unlink")
	}
	if _, ok, _ := svc.DiscordFor(ctx, player); ok {
		t.Fatal("reverse lookup still present after self unlink")
	}
}

func TestUnlinkByModerator(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if err := svc.UnlinkMinecraft(ctx, player, 99, true); err != nil {
		t.Fatalf("moderator unlink: %v", err)
	}
	if _, ok, _ := svc.DiscordFor(ctx, player); ok {
		t.Fatal("link still present after moderator unlink")
	}
}

func TestUnlinkMinecraftPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if err := svc.UnlinkMinecraft(ctx, player, 2, false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("UnlinkMinecraft = %v; want ErrPermissionDenied", err)
	}
	// The owner may unlink their own account by its Minecraft side.
	if err := svc.UnlinkMinecraft(ctx, player, 1, false); err != nil {
		t.Fatalf("owner unlink: %v", err)
	}
}

func TestHandleMemberRemove(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	removed, err := svc.HandleMemberRemove(ctx, 1)
	if err != nil || !removed {
		t.Fatalf("HandleMemberRemove = %v, %v; want true, nil", removed, err)
	}
	if _, ok, _ := svc.DiscordFor(ctx, player); ok {
		t.Fatal("link survived member removal")
	}

	// Members without a link are ignored.
	removed, err = svc.HandleMemberRemove(ctx, 2)
	if err != nil || removed {
		t.Fatalf("HandleMemberRemove for unlinked member = %v, %v; want false, nil", removed, err)
	}
}

func TestHandleLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()

	allowed, code, err := svc.HandleLogin(ctx, player)
	if err != nil {
		t.Fatalf("HandleLogin: %v", err)
	}
	if allowed {
		t.Fatal("unlinked player was allowed")
	}
	if code < codeMin || code > codeMax {
		t.Fatalf("login code %d outside range", code)
	}

	// The code from the login screen is redeemable.
	if _, err := svc.Redeem(ctx, code, 7); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	allowed, _, err = svc.HandleLogin(ctx, player)
	if err != nil || !allowed {
		t.Fatalf("HandleLogin after linking = %v, %v; want true, nil", allowed, err)
	}
}

func TestRoleGrantBestEffort(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.SetRoleGranter(func(ctx context.Context, discordID uint64) error {
		return errors.New("discord is down")
	})

	player := uuid.New()
	code, _ := svc.RequestCode(ctx, player)
	// A failing role grant must not fail the redemption.
	if _, err := svc.Redeem(ctx, code, 1); err != nil {
		t.Fatalf("Redeem with failing granter: %v", err)
	}
	if _, ok, _ := svc.DiscordFor(ctx, player); !ok {
		t.Fatal("link not created despite successful redemption")
	}
}

func TestBackfillRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		player := uuid.New()
		code, _ := svc.RequestCode(ctx, player)
		if _, err := svc.Redeem(ctx, code, i); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
	}

	var mu sync.Mutex
	granted := map[uint64]int{}
	svc.SetRoleGranter(func(ctx context.Context, discordID uint64) error {
		mu.Lock()
		defer mu.Unlock()
		granted[discordID]++
		if discordID == 2 {
			return errors.New("member gone")
		}
		return nil
	})

	n, err := svc.BackfillRole(ctx)
	if err != nil {
		t.Fatalf("BackfillRole: %v", err)
	}
	// One member fails, the batch continues.
	if n != 2 {
		t.Fatalf("BackfillRole granted %d, want 2", n)
	}
	for i := uint64(1); i <= 3; i++ {
		if granted[i] != 1 {
			t.Errorf("member %d saw %d grant attempts, want 1", i, granted[i])
		}
	}
}

func TestConcurrentRedemption(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	player := uuid.New()
	code, err := svc.RequestCode(ctx, player)
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for n := 0; n < attempts; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Redeem(ctx, code, uint64(1000+n))
		}(n)
	}
	wg.Wait()

	successes := 0
	for n, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrMinecraftAlreadyLinked):
			// Expected for the losers of the race.
		default:
			t.Errorf("attempt %d failed with unexpected error: %v", n, err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d redemptions succeeded, want exactly 1", successes)
	}

	// Exactly one link exists afterwards.
	ids, err := svc.store.AllDiscordIDs(ctx)
	if err != nil {
		t.Fatalf("AllDiscordIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("store holds %d records, want 1", len(ids))
	}
}
