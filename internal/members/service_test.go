package members

import (
	"context"
	"fmt"
	"testing"

	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/pkg/apperr"
)

type env struct {
	ctx   context.Context
	store *memory.Store
	svc   *Service
	user1 *models.User
	user2 *models.User
	event *models.Collective
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	identity := auth.NewIdentityResolver(s, nil)
	e := &env{ctx: ctx, store: s, svc: NewService(s, identity, nil)}
	var err error
	if e.user1, err = identity.FindOrCreateByEmail(ctx, "user1@example.com", "Xavier", ""); err != nil {
		t.Fatal(err)
	}
	if e.user2, err = identity.FindOrCreateByEmail(ctx, "user2@example.com", "Aseem", ""); err != nil {
		t.Fatal(err)
	}
	e.event = &models.Collective{Type: models.CollectiveTypeEvent, Slug: "jan-meetup", Name: "January meetup"}
	if err := s.CreateCollective(ctx, e.event); err != nil {
		t.Fatal(err)
	}
	admin := &models.Member{CollectiveID: e.event.ID, MemberCollectiveID: e.user1.CollectiveID, Role: models.RoleAdmin, CreatedByUserID: e.user1.ID}
	if err := s.CreateMember(ctx, admin); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) actor(t *testing.T, u *models.User) *policy.Actor {
	t.Helper()
	a, err := policy.LoadActor(e.ctx, e.store, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func (e *env) count(t *testing.T) int {
	t.Helper()
	n, err := e.store.CountMembers(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreateFollowerRedactsEmail(t *testing.T) {
	e := newEnv(t)

	v, err := e.svc.Create(e.ctx, nil, Input{
		Member:     MemberRef{Email: e.user2.Email},
		Collective: CollectiveRef{ID: e.event.ID},
		Role:       models.RoleFollower,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if v.Role != models.RoleFollower || v.Member.ID != e.user2.CollectiveID || v.Collective.Slug != "jan-meetup" {
		t.Errorf("view = %+v", v)
	}
	if v.Member.Email != nil {
		t.Errorf("anonymous caller sees email %q", *v.Member.Email)
	}

	// an admin of the event sees the email of its members
	again, err := e.svc.Create(e.ctx, e.actor(t, e.user1), Input{
		Member:     MemberRef{Email: e.user2.Email},
		Collective: CollectiveRef{ID: e.event.ID},
		Role:       models.RoleFollower,
	})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != v.ID {
		t.Errorf("duplicate membership %d created, want %d", again.ID, v.ID)
	}
	if again.Member.Email == nil || *again.Member.Email != e.user2.Email {
		t.Errorf("admin sees email %v", again.Member.Email)
	}
}

func TestCreateMemberRoles(t *testing.T) {
	e := newEnv(t)
	in := Input{Member: MemberRef{ID: e.user2.CollectiveID}, Collective: CollectiveRef{ID: e.event.ID}, Role: models.RoleMember}

	_, err := e.svc.Create(e.ctx, e.actor(t, e.user2), in)
	if apperr.KindOf(err) != apperr.KindPermissionDenied {
		t.Fatalf("error = %v, want PermissionDenied", err)
	}
	if _, err := e.svc.Create(e.ctx, e.actor(t, e.user1), in); err != nil {
		t.Fatalf("admin Create() error = %v", err)
	}

	_, err = e.svc.Create(e.ctx, e.actor(t, e.user1), Input{Collective: CollectiveRef{ID: e.event.ID}, Role: "OWNER"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestRemoveMember(t *testing.T) {
	e := newEnv(t)
	in := Input{Member: MemberRef{ID: e.user2.CollectiveID}, Collective: CollectiveRef{ID: e.event.ID}, Role: models.RoleFollower}

	_, err := e.svc.Remove(e.ctx, nil, in)
	if apperr.KindOf(err) != apperr.KindNotFound || apperr.Message(err) != "Member not found" {
		t.Fatalf("error = %v, want Member not found", err)
	}

	if _, err := e.svc.Create(e.ctx, e.actor(t, e.user2), in); err != nil {
		t.Fatal(err)
	}

	outsider, err := auth.NewIdentityResolver(e.store, nil).FindOrCreateByEmail(e.ctx, "user3@example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.svc.Remove(e.ctx, e.actor(t, outsider), in)
	want := fmt.Sprintf("You need to be logged in as this user or as a core contributor or as a host of the collective id %d", e.event.ID)
	if apperr.KindOf(err) != apperr.KindPermissionDenied || apperr.Message(err) != want {
		t.Fatalf("error = %v, want %q", err, want)
	}

	before := e.count(t)
	if _, err := e.svc.Remove(e.ctx, e.actor(t, e.user2), in); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if diff := before - e.count(t); diff != 1 {
		t.Errorf("member count changed by %d, want 1", diff)
	}
}
