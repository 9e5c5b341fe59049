package collectives

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/internal/tiers"
	"github.com/fundhub/backend/pkg/apperr"
)

func ptr[T any](v T) *T { return &v }

type env struct {
	ctx    context.Context
	store  *memory.Store
	svc    *Service
	user1  *models.User
	user2  *models.User
	host   *models.User
	scouts *models.Collective
}

// newEnv creates the scouts collective administered by user1 and hosted by
// host.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	identity := auth.NewIdentityResolver(s, nil)
	e := &env{ctx: ctx, store: s, svc: NewService(s, nil)}
	var err error
	if e.user1, err = identity.FindOrCreateByEmail(ctx, "xdamman@example.com", "Xavier", "Damman"); err != nil {
		t.Fatal(err)
	}
	if e.user2, err = identity.FindOrCreateByEmail(ctx, "aseem@example.com", "Aseem", ""); err != nil {
		t.Fatal(err)
	}
	if e.host, err = identity.FindOrCreateByEmail(ctx, "host@example.com", "Host", ""); err != nil {
		t.Fatal(err)
	}
	e.scouts = &models.Collective{
		Type:             models.CollectiveTypeCollective,
		Slug:             "scouts",
		Name:             "Scouts d'Arlon",
		Currency:         "EUR",
		IsActive:         true,
		HostCollectiveID: &e.host.CollectiveID,
	}
	if err := s.CreateCollective(ctx, e.scouts); err != nil {
		t.Fatal(err)
	}
	for _, m := range []models.Member{
		{CollectiveID: e.scouts.ID, MemberCollectiveID: e.user1.CollectiveID, Role: models.RoleAdmin},
		{CollectiveID: e.scouts.ID, MemberCollectiveID: e.host.CollectiveID, Role: models.RoleHost},
	} {
		m := m
		if err := s.CreateMember(ctx, &m); err != nil {
			t.Fatal(err)
		}
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

func (e *env) eventInput() Input {
	return Input{
		Type:               models.CollectiveTypeEvent,
		Name:               "BrusselsTogether Meetup 3",
		Timezone:           "Europe/Brussels",
		ParentCollectiveID: &e.scouts.ID,
		Tiers: []tiers.Input{
			{Name: "free ticket", Description: "Free ticket", Amount: 0},
			{Name: "sponsor", Description: "Sponsor the drinks.", Amount: 15000},
		},
	}
}

func checkErr(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Errorf("kind = %s, want %s (%v)", got, kind, err)
	}
	if message != "" && apperr.Message(err) != message {
		t.Errorf("message = %q, want %q", apperr.Message(err), message)
	}
}

func TestCreateEventAuthorization(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Create(e.ctx, nil, e.eventInput())
	checkErr(t, err, apperr.KindNotAuthenticated, "You need to be logged in to create a collective")

	_, err = e.svc.Create(e.ctx, e.actor(t, e.user2), e.eventInput())
	checkErr(t, err, apperr.KindPermissionDenied, "You must be logged in as a member of the scouts collective to create an event")
}

func TestCreateOnHost(t *testing.T) {
	e := newEnv(t)
	v, err := e.svc.Create(e.ctx, e.actor(t, e.user1), Input{Name: "new collective", HostCollectiveID: &e.host.CollectiveID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if v.Host == nil || v.Host.ID != e.host.CollectiveID {
		t.Errorf("host = %+v, want %d", v.Host, e.host.CollectiveID)
	}
	if v.IsActive {
		t.Error("collective is active before the host approved it")
	}
	if v.Slug != "new-collective" {
		t.Errorf("slug = %q", v.Slug)
	}

	hosts, _ := e.store.ListMembers(e.ctx, models.MemberFilter{CollectiveID: v.ID, Role: models.RoleHost})
	if len(hosts) != 1 || hosts[0].MemberCollectiveID != e.host.CollectiveID {
		t.Errorf("host memberships = %+v", hosts)
	}
	admins, _ := e.store.ListMembers(e.ctx, models.MemberFilter{CollectiveID: v.ID, Role: models.RoleAdmin})
	if len(admins) != 1 || admins[0].MemberCollectiveID != e.user1.CollectiveID {
		t.Errorf("admin memberships = %+v", admins)
	}

	// the host itself gets an active collective and a suffixed slug
	v2, err := e.svc.Create(e.ctx, e.actor(t, e.host), Input{Name: "New Collective", HostCollectiveID: &e.host.CollectiveID})
	if err != nil {
		t.Fatal(err)
	}
	if !v2.IsActive || v2.Slug != "new-collective-1" {
		t.Errorf("active = %v slug = %q", v2.IsActive, v2.Slug)
	}
}

func TestCreateAndEditEvent(t *testing.T) {
	e := newEnv(t)
	creator := e.actor(t, e.user1)

	created, err := e.svc.Create(e.ctx, creator, e.eventInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	wantSlug := "brusselstogether-meetup-3-" + strconv.FormatInt(e.scouts.ID, 10) + "ev"
	if created.Slug != wantSlug {
		t.Errorf("slug = %q, want %q", created.Slug, wantSlug)
	}
	if len(created.Tiers) != 2 || !created.IsActive {
		t.Fatalf("tiers = %d active = %v", len(created.Tiers), created.IsActive)
	}
	if created.Currency != "EUR" || created.HostCollectiveID == nil || *created.HostCollectiveID != e.host.CollectiveID {
		t.Errorf("event did not inherit from parent: %+v", created.Collective)
	}
	members, _ := e.store.ListMembers(e.ctx, models.MemberFilter{CollectiveID: created.ID})
	if len(members) != 1 || members[0].Role != models.RoleAdmin || members[0].MemberCollectiveID != e.user1.CollectiveID {
		t.Fatalf("members = %+v, want the creator as only ADMIN", members)
	}

	remaining := created.Tiers[1].Tier
	edit := Input{
		ID:   created.ID,
		Slug: "newslug",
		Tiers: []tiers.Input{{
			ID:     &remaining.ID,
			Name:   remaining.Name,
			Amount: 123,
		}},
	}

	_, err = e.svc.Edit(e.ctx, nil, edit)
	checkErr(t, err, apperr.KindNotAuthenticated, "You need to be logged in to edit a collective")

	_, err = e.svc.Edit(e.ctx, e.actor(t, e.user2), edit)
	checkErr(t, err, apperr.KindPermissionDenied,
		"You must be logged in as the creator of this Event or as an admin of the scouts collective to edit this Event Collective")

	updated, err := e.svc.Edit(e.ctx, creator, edit)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if want := "newslug-" + strconv.FormatInt(e.scouts.ID, 10) + "ev"; updated.Slug != want {
		t.Errorf("slug = %q, want %q", updated.Slug, want)
	}
	if len(updated.Tiers) != 1 || updated.Tiers[0].Amount != 123 || updated.Tiers[0].ID != remaining.ID {
		t.Errorf("tiers = %+v, want one tier with amount 123", updated.Tiers)
	}

	// resubmitting the same edit keeps the suffix and the tier rows
	again, err := e.svc.Edit(e.ctx, creator, Input{ID: created.ID, Slug: updated.Slug, Tiers: edit.Tiers})
	if err != nil {
		t.Fatal(err)
	}
	if again.Slug != updated.Slug || len(again.Tiers) != 1 || again.Tiers[0].ID != remaining.ID {
		t.Errorf("second edit changed state: slug %q tiers %+v", again.Slug, again.Tiers)
	}
}

func TestEditTiers(t *testing.T) {
	e := newEnv(t)
	in := []tiers.Input{
		{Name: "backer", Type: models.TierTypeTier, Amount: 10000, Interval: ptr("month")},
		{Name: "sponsor", Type: models.TierTypeTier, Amount: 500000, Interval: ptr("year")},
	}

	_, err := e.svc.EditTiers(e.ctx, nil, e.scouts.ID, in)
	checkErr(t, err, apperr.KindNotAuthenticated, "You need to be logged in to edit tiers")

	_, err = e.svc.EditTiers(e.ctx, e.actor(t, e.user2), e.scouts.ID, nil)
	checkErr(t, err, apperr.KindPermissionDenied, "You need to be logged in as a core contributor or as a host of the Scouts d'Arlon collective")

	admin := e.actor(t, e.user1)
	first, err := e.svc.EditTiers(e.ctx, admin, e.scouts.ID, in)
	if err != nil {
		t.Fatalf("EditTiers() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("tiers = %d, want 2", len(first))
	}

	next := []tiers.Input{
		{ID: &first[0].ID, Name: "backer", Amount: 100000, Interval: ptr("month")},
		{ID: &first[1].ID, Name: "sponsor", Amount: 500000, Interval: ptr("year"), Goal: ptr(int64(20000))},
		{Name: "free ticket", Type: models.TierTypeTicket},
	}
	second, err := e.svc.EditTiers(e.ctx, admin, e.scouts.ID, next)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 3 {
		t.Fatalf("tiers = %d, want 3", len(second))
	}
	if second[0].Amount != 100000 || second[1].Goal == nil || *second[1].Goal != 20000 {
		t.Errorf("updates not applied: %+v", second)
	}
	if second[0].Currency != "EUR" {
		t.Errorf("currency = %q, want collective currency", second[0].Currency)
	}
}

func TestDeleteCollective(t *testing.T) {
	e := newEnv(t)
	event, err := e.svc.Create(e.ctx, e.actor(t, e.user1), e.eventInput())
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.svc.Delete(e.ctx, nil, event.ID)
	checkErr(t, err, apperr.KindNotAuthenticated, "You need to be logged in to delete a collective")

	_, err = e.svc.Delete(e.ctx, e.actor(t, e.user2), event.ID)
	checkErr(t, err, apperr.KindPermissionDenied, "You need to be logged in as a core contributor or as a host to delete this collective")
	if _, err := e.svc.Get(e.ctx, event.ID, TierFilter{}); err != nil {
		t.Fatalf("collective gone after refused delete: %v", err)
	}

	if _, err := e.svc.Delete(e.ctx, e.actor(t, e.user1), event.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = e.svc.Get(e.ctx, event.ID, TierFilter{})
	checkErr(t, err, apperr.KindNotFound, "")
	if members, _ := e.store.ListMembers(e.ctx, models.MemberFilter{CollectiveID: event.ID}); len(members) != 0 {
		t.Errorf("memberships survived delete: %+v", members)
	}
}

func TestDeleteRefusesProcessedOrders(t *testing.T) {
	e := newEnv(t)
	processed := &models.Order{
		CollectiveID:     e.scouts.ID,
		FromCollectiveID: e.user2.CollectiveID,
		CreatedByUserID:  e.user2.ID,
		Quantity:         1,
		Status:           models.OrderStatusPaid,
		ProcessedAt:      ptr(time.Now()),
	}
	if err := e.store.CreateOrder(e.ctx, processed); err != nil {
		t.Fatal(err)
	}
	_, err := e.svc.Delete(e.ctx, e.actor(t, e.user1), e.scouts.ID)
	checkErr(t, err, apperr.KindValidation, "")
}

func TestEventSlugsStayUnique(t *testing.T) {
	e := newEnv(t)
	admin := e.actor(t, e.user1)
	first, err := e.svc.Create(e.ctx, admin, e.eventInput())
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.svc.Create(e.ctx, admin, e.eventInput())
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	base := "brusselstogether-meetup-3-" + strconv.FormatInt(e.scouts.ID, 10) + "ev"
	if first.Slug != base {
		t.Errorf("first slug = %q, want %q", first.Slug, base)
	}
	if second.Slug != base+"-1" {
		t.Errorf("second slug = %q, want %q", second.Slug, base+"-1")
	}

	// renaming the second event onto the first one's slug is disambiguated
	renamed, err := e.svc.Edit(e.ctx, admin, Input{ID: second.ID, Slug: "BrusselsTogether Meetup 3"})
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Slug != base+"-1" {
		t.Errorf("renamed slug = %q, want %q", renamed.Slug, base+"-1")
	}
}

func TestEditSlugNormalization(t *testing.T) {
	e := newEnv(t)
	admin := e.actor(t, e.user1)
	event, err := e.svc.Create(e.ctx, admin, e.eventInput())
	if err != nil {
		t.Fatal(err)
	}
	suffix := "-" + strconv.FormatInt(e.scouts.ID, 10) + "ev"

	tests := []struct {
		name string
		id   int64
		slug string
		want string
	}{
		{"same slug in another case", e.scouts.ID, "Scouts", "scouts"},
		{"collective slug is slugified", e.scouts.ID, "Scouts Arlon", "scouts-arlon"},
		{"event slug is slugified", event.ID, "My New Slug", "my-new-slug" + suffix},
		{"event slug resubmitted", event.ID, "my-new-slug" + suffix, "my-new-slug" + suffix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.svc.Edit(e.ctx, admin, Input{ID: tt.id, Slug: tt.slug})
			if err != nil {
				t.Fatalf("Edit() error = %v", err)
			}
			if v.Slug != tt.want {
				t.Errorf("slug = %q, want %q", v.Slug, tt.want)
			}
		})
	}
}

func TestGetFiltersTiers(t *testing.T) {
	e := newEnv(t)
	admin := e.actor(t, e.user1)
	created, err := e.svc.EditTiers(e.ctx, admin, e.scouts.ID, []tiers.Input{
		{Name: "backer", Amount: 500},
		{Slug: "bronze-sponsor", Name: "bronze sponsor", Amount: 10000},
		{Slug: "gold-sponsor", Name: "gold sponsor", Amount: 50000},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter TierFilter
		want   []string
	}{
		{"all tiers", TierFilter{}, []string{"backer", "bronze sponsor", "gold sponsor"}},
		{"by slug", TierFilter{Slug: "bronze-sponsor"}, []string{"bronze sponsor"}},
		{"by id", TierFilter{ID: created[0].ID}, []string{"backer"}},
		{"no match", TierFilter{Slug: "platinum"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.svc.GetBySlug(e.ctx, "scouts", tt.filter)
			if err != nil {
				t.Fatalf("GetBySlug() error = %v", err)
			}
			if v.ID != e.scouts.ID {
				t.Errorf("collective = %d, want %d", v.ID, e.scouts.ID)
			}
			var got []string
			for _, tier := range v.Tiers {
				got = append(got, tier.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("tiers = %v, want %v", got, tt.want)
			}
		})
	}

	_, err = e.svc.GetBySlug(e.ctx, "nope", TierFilter{})
	checkErr(t, err, apperr.KindNotFound, "No collective found with slug: nope")
}
