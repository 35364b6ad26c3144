package lifecycle

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

func TestContestHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContest(t, "10")
	if c.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.Version != 1 || c.ParticipantCount != 0 || c.Ended {
		t.Fatalf("unexpected new contest read model: %+v", c)
	}

	c, err := f.manager.SetStatus(ctx, c.ID, models.StatusApproved, f.admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if c.Status != models.StatusApproved {
		t.Fatalf("expected approved, got %s", c.Status)
	}

	c = f.pay(t, c.ID, f.user.ID)
	if !slices.Equal(c.Participants, []uuid.UUID{f.user.ID}) {
		t.Fatalf("expected participants [%s], got %v", f.user.ID, c.Participants)
	}

	sub, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://x.com")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.TaskLink != "https://x.com" || sub.UserID != f.user.ID {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if got := f.store.Submissions(c.ID); len(got) != 1 {
		t.Fatalf("expected 1 stored submission, got %d", len(got))
	}

	c, err = f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin)
	if err != nil {
		t.Fatalf("declare winner: %v", err)
	}
	if c.Status != models.StatusWinnerDeclared {
		t.Fatalf("expected winnerDeclared, got %s", c.Status)
	}
	if c.WinnerID == nil || *c.WinnerID != f.user.ID {
		t.Fatalf("expected winner %s, got %v", f.user.ID, c.WinnerID)
	}
}

func TestCreateContestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*ContestDraft)
		field string
	}{
		{"negative price", func(d *ContestDraft) { d.Price = "-5" }, "price"},
		{"price not a number", func(d *ContestDraft) { d.Price = "ten" }, "price"},
		{"negative prize", func(d *ContestDraft) { d.PrizeMoney = "-1" }, "prizeMoney"},
		{"too many decimals", func(d *ContestDraft) { d.Price = "1.005" }, "price"},
		{"price overflows column", func(d *ContestDraft) { d.Price = "1e20" }, "price"},
		{"prize at column limit", func(d *ContestDraft) { d.PrizeMoney = "10000000000" }, "prizeMoney"},
		{"missing name", func(d *ContestDraft) { d.Name = "  " }, "name"},
		{"missing instruction", func(d *ContestDraft) { d.TaskInstruction = "" }, "taskInstruction"},
		{"image not a url", func(d *ContestDraft) { d.Image = "landing.png" }, "image"},
		{"unknown type", func(d *ContestDraft) { d.Type = "Juggling" }, "type"},
		{"deadline unparsable", func(d *ContestDraft) { d.Deadline = "tomorrow" }, "deadline"},
		{"deadline now", func(d *ContestDraft) { d.Deadline = f.clock.Now().Format(time.RFC3339) }, "deadline"},
		{"deadline past", func(d *ContestDraft) { d.Deadline = f.clock.Now().Add(-time.Hour).Format(time.RFC3339) }, "deadline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.draft("10")
			tt.edit(&d)
			_, err := f.manager.CreateContest(ctx, d, f.creator)
			assertKind(t, err, errs.ErrValidation)
			var apiErr *errs.ApiErr
			if !errors.As(err, &apiErr) || apiErr.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
		})
	}

	if got := len(f.store.Events()); got != 0 {
		t.Fatalf("expected no events after failed creates, got %d", got)
	}
}

func TestCreateContestAcceptsCompactType(t *testing.T) {
	f := newFixture(t)
	d := f.draft("0.50")
	d.Type = "GraphicDesign"
	c, err := f.manager.CreateContest(context.Background(), d, f.admin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Type != models.TypeGraphicDesign {
		t.Fatalf("expected %q, got %q", models.TypeGraphicDesign, c.Type)
	}
	if c.Price.StringFixed(2) != "0.50" {
		t.Fatalf("expected price 0.50, got %s", c.Price)
	}
}

func TestCreateContestRequiresCreatorRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.CreateContest(context.Background(), f.draft("10"), f.user)
	assertKind(t, err, errs.ErrForbidden)
}

func TestSetStatusOnlyFollowsTable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		from   models.ContestStatus
		target models.ContestStatus
		want   error
	}{
		{"approve pending", models.StatusPending, models.StatusApproved, nil},
		{"reject pending", models.StatusPending, models.StatusRejected, nil},
		{"pending to pending", models.StatusPending, models.StatusPending, errs.ErrInvalidTransition},
		{"winner without id", models.StatusApproved, models.StatusWinnerDeclared, errs.ErrInvalidTransition},
		{"approve approved", models.StatusApproved, models.StatusApproved, errs.ErrInvalidTransition},
		{"reject approved", models.StatusApproved, models.StatusRejected, errs.ErrInvalidTransition},
		{"reopen rejected", models.StatusRejected, models.StatusApproved, errs.ErrInvalidTransition},
		{"back to pending", models.StatusApproved, models.StatusPending, errs.ErrInvalidTransition},
		{"unknown status", models.StatusPending, models.ContestStatus("archived"), errs.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.createContest(t, "10")
			if tt.from != models.StatusPending {
				var err error
				if c, err = f.manager.SetStatus(ctx, c.ID, tt.from, f.admin); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}

			got, err := f.manager.SetStatus(ctx, c.ID, tt.target, f.admin)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if got.Status != tt.target {
					t.Fatalf("expected %s, got %s", tt.target, got.Status)
				}
				return
			}
			assertKind(t, err, tt.want)

			stored, _ := f.store.GetContest(ctx, c.ID)
			if stored.Status != c.Status || stored.Version != c.Version {
				t.Fatalf("expected state unchanged at %s v%d, got %s v%d", c.Status, c.Version, stored.Status, stored.Version)
			}
		})
	}
}

func TestSetStatusRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	c := f.createContest(t, "10")
	for _, actor := range []Actor{f.creator, f.user} {
		_, err := f.manager.SetStatus(context.Background(), c.ID, models.StatusApproved, actor)
		assertKind(t, err, errs.ErrForbidden)
	}
}

func TestRegisterParticipantIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approvedContest(t, "10")
	f.markPaid(t, c.ID, f.user.ID, "10")

	first, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
	assertKind(t, err, errs.ErrAlreadyRegistered)

	if !slices.Equal(first.Participants, second.Participants) {
		t.Fatalf("expected same participants, got %v and %v", first.Participants, second.Participants)
	}
	if second.Version != first.Version {
		t.Fatalf("expected no write on repeat, version went %d -> %d", first.Version, second.Version)
	}
	if second.ParticipantCount != 1 {
		t.Fatalf("expected 1 participant, got %d", second.ParticipantCount)
	}
}

func TestRegisterParticipantPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("deadline passed", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.markPaid(t, c.ID, f.user.ID, "10")
		f.clock.Advance(2 * time.Hour)

		_, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
		assertKind(t, err, errs.ErrContestEnded)
		stored, _ := f.store.GetContest(ctx, c.ID)
		if len(stored.Participants) != 0 {
			t.Fatalf("expected participants unchanged, got %v", stored.Participants)
		}
	})

	t.Run("deadline exactly now", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.markPaid(t, c.ID, f.user.ID, "10")
		f.clock.Advance(time.Hour)

		_, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
		assertKind(t, err, errs.ErrContestEnded)
	})

	t.Run("not approved", func(t *testing.T) {
		f := newFixture(t)
		c := f.createContest(t, "10")
		f.markPaid(t, c.ID, f.user.ID, "10")

		_, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
		assertKind(t, err, errs.ErrContestEnded)
	})

	t.Run("no payment", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")

		_, err := f.manager.RegisterParticipant(ctx, c.ID, f.user.ID)
		assertKind(t, err, errs.ErrPaymentRequired)
	})

	t.Run("creator of the contest", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.markPaid(t, c.ID, f.creator.ID, "10")

		_, err := f.manager.RegisterParticipant(ctx, c.ID, f.creator.ID)
		assertKind(t, err, errs.ErrForbidden)
	})

	t.Run("unknown contest", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.RegisterParticipant(ctx, uuid.New(), f.user.ID)
		assertKind(t, err, errs.ErrNotFound)
	})
}

func TestSubmitTask(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites earlier submission", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)

		first, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://example.com/v1")
		if err != nil {
			t.Fatalf("first submit: %v", err)
		}
		f.clock.Advance(time.Minute)
		second, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://example.com/v2")
		if err != nil {
			t.Fatalf("second submit: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected stable submission id, got %s and %s", first.ID, second.ID)
		}

		stored := f.store.Submissions(c.ID)
		if len(stored) != 1 || stored[0].TaskLink != "https://example.com/v2" {
			t.Fatalf("expected only the latest submission, got %+v", stored)
		}
	})

	t.Run("not registered", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		_, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://example.com")
		assertKind(t, err, errs.ErrNotRegistered)
	})

	t.Run("after deadline", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		f.clock.Advance(2 * time.Hour)
		_, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://example.com")
		assertKind(t, err, errs.ErrContestEnded)
	})

	t.Run("after winner declared", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		if _, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.creator); err != nil {
			t.Fatalf("declare: %v", err)
		}
		_, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, "https://example.com")
		assertKind(t, err, errs.ErrContestEnded)
	})

	for _, link := range []string{"", "not a url", "ftp://example.com/file", "https://"} {
		t.Run("invalid link "+link, func(t *testing.T) {
			f := newFixture(t)
			c := f.approvedContest(t, "10")
			f.pay(t, c.ID, f.user.ID)
			_, err := f.manager.SubmitTask(ctx, c.ID, f.user.ID, link)
			assertKind(t, err, errs.ErrValidation)
		})
	}
}

func TestDeclareWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("same winner twice is a no-op", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)

		first, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin)
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
		second, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin)
		if err != nil {
			t.Fatalf("expected repeat to succeed, got %v", err)
		}
		if second.Version != first.Version {
			t.Fatalf("expected no write on repeat, version went %d -> %d", first.Version, second.Version)
		}
	})

	t.Run("different winner after one is set", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		f.pay(t, c.ID, f.other.ID)

		if _, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin); err != nil {
			t.Fatalf("declare: %v", err)
		}
		_, err := f.manager.DeclareWinner(ctx, c.ID, f.other.ID, f.admin)
		assertKind(t, err, errs.ErrWinnerAlreadySet)
	})

	t.Run("winner must participate", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		_, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin)
		assertKind(t, err, errs.ErrNotAParticipant)
	})

	t.Run("pending contest", func(t *testing.T) {
		f := newFixture(t)
		c := f.createContest(t, "10")
		_, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin)
		assertKind(t, err, errs.ErrInvalidTransition)
	})

	t.Run("after deadline is allowed", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		f.clock.Advance(48 * time.Hour)
		got, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.creator)
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
		if !got.Ended {
			t.Fatalf("expected read model to report ended")
		}
	})

	t.Run("authorization", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)

		strangerCreator := Actor{ID: uuid.New(), Role: models.RoleCreator}
		for _, actor := range []Actor{f.user, f.other, strangerCreator} {
			_, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, actor)
			assertKind(t, err, errs.ErrForbidden)
		}
		if _, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.creator); err != nil {
			t.Fatalf("owner creator should declare, got %v", err)
		}
	})
}

func TestEditContest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createContest(t, "10")

	edited, err := f.manager.EditContest(ctx, c.ID, ContestDraft{Name: "Portfolio site", PrizeMoney: "250.5"}, f.creator)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Name != "Portfolio site" || edited.PrizeMoney.StringFixed(2) != "250.50" {
		t.Fatalf("edit not applied: %+v", edited)
	}
	if edited.Description != c.Description || !edited.Deadline.Equal(c.Deadline) {
		t.Fatalf("expected untouched fields to survive")
	}

	_, err = f.manager.EditContest(ctx, c.ID, ContestDraft{Name: "Hijack"}, f.other)
	assertKind(t, err, errs.ErrForbidden)

	if _, err := f.manager.SetStatus(ctx, c.ID, models.StatusApproved, f.admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = f.manager.EditContest(ctx, c.ID, ContestDraft{Name: "Too late"}, f.creator)
	assertKind(t, err, errs.ErrInvalidTransition)
}

func TestDeleteContest(t *testing.T) {
	ctx := context.Background()

	t.Run("owner while pending", func(t *testing.T) {
		f := newFixture(t)
		c := f.createContest(t, "10")
		if err := f.manager.DeleteContest(ctx, c.ID, f.creator); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, err := f.store.GetContest(ctx, c.ID)
		assertKind(t, err, errs.ErrNotFound)
	})

	t.Run("owner after approval", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		err := f.manager.DeleteContest(ctx, c.ID, f.creator)
		assertKind(t, err, errs.ErrForbidden)
	})

	t.Run("admin in any status", func(t *testing.T) {
		f := newFixture(t)
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		if _, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin); err != nil {
			t.Fatalf("declare: %v", err)
		}
		if err := f.manager.DeleteContest(ctx, c.ID, f.admin); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})
}

func TestWinnerIsAlwaysAParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := []Actor{f.user, f.other, {ID: uuid.New(), Role: models.RoleUser}}

	for i := 0; i < 6; i++ {
		c := f.approvedContest(t, "5")
		for j, u := range users {
			if j <= i%len(users) {
				f.pay(t, c.ID, u.ID)
			}
		}
		for _, u := range users {
			_, _ = f.manager.DeclareWinner(ctx, c.ID, u.ID, f.admin)
		}
	}

	all, err := f.manager.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, c := range all {
		if c.HasWinner() && !c.HasParticipant(*c.WinnerID) {
			t.Fatalf("contest %s has non-participant winner %s", c.ID, *c.WinnerID)
		}
	}
}

func TestEventsAreRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approvedContest(t, "10")
	f.pay(t, c.ID, f.user.ID)
	if _, err := f.manager.DeclareWinner(ctx, c.ID, f.user.ID, f.admin); err != nil {
		t.Fatalf("declare: %v", err)
	}

	var kinds []models.EventKind
	for _, ev := range f.store.Events() {
		kinds = append(kinds, ev.Kind)
	}
	want := []models.EventKind{
		models.EventContestCreated,
		models.EventContestApproved,
		models.EventParticipantRegistered,
		models.EventWinnerDeclared,
	}
	if !slices.Equal(kinds, want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
}
