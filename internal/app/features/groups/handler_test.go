package groups_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/shgledger/internal/app/features/groups"
	"github.com/dalemusser/shgledger/internal/app/system/indexes"
	"github.com/dalemusser/shgledger/internal/app/system/paging"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/shgledger/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	h := groups.NewHandler(db, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/groups", groups.Routes(h))
	return r, testutil.NewFixtures(t, db)
}

func serve(router http.Handler, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreate_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"name":"Laxmi <i>SHG</i>","code":"SHG-001","meeting_date_1_day":5,"meeting_date_2_day":20,
		"meeting_time_1":"10:30","saving_per_member":100,"loan_interest_rate":2,"fd_interest_rate":7}`
	rec := serve(router, testutil.NewJSONRequest(http.MethodPost, "/groups", body))
	rec.AssertStatus(t, http.StatusCreated)

	var g models.Group
	env := rec.DecodeEnvelope(t, &g)
	if !env.Success {
		t.Fatalf("success = false: %s", env.Message)
	}
	if g.Name != "Laxmi SHG" {
		t.Errorf("name = %q, want %q", g.Name, "Laxmi SHG")
	}
	if g.MeetingDay1 == nil || *g.MeetingDay1 != 5 || g.MeetingDay2 == nil || *g.MeetingDay2 != 20 {
		t.Errorf("meeting days = %v, %v", g.MeetingDay1, g.MeetingDay2)
	}
	if g.Status != "active" {
		t.Errorf("status = %q, want active", g.Status)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"code":"C1"}`},
		{"missing code", `{"name":"A"}`},
		{"day out of range", `{"name":"A","code":"C1","meeting_date_1_day":32}`},
		{"bad meeting time", `{"name":"A","code":"C1","meeting_time_1":"25:00"}`},
		{"negative saving", `{"name":"A","code":"C1","saving_per_member":-5}`},
		{"unknown field", `{"name":"A","code":"C1","leader":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, testutil.NewJSONRequest(http.MethodPost, "/groups", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleCreate_Duplicates(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateGroup(ctx, "Durga", "SHG-9")

	rec := serve(router, testutil.NewJSONRequest(http.MethodPost, "/groups", `{"name":"Other","code":"SHG-9"}`))
	rec.AssertStatus(t, http.StatusConflict)

	rec = serve(router, testutil.NewJSONRequest(http.MethodPost, "/groups", `{"name":"DURGA","code":"SHG-10"}`))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeGroup_ByIDCodeAndName(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	g := fixtures.CreateGroup(ctx, "Saraswati", "SHG-42")

	for _, ref := range []string{g.ID.Hex(), "SHG-42", "saraswati"} {
		t.Run(ref, func(t *testing.T) {
			rec := serve(router, testutil.NewRequest(http.MethodGet, "/groups/"+ref))
			rec.AssertStatus(t, http.StatusOK)
			var got models.Group
			rec.DecodeEnvelope(t, &got)
			if got.ID != g.ID {
				t.Errorf("id = %s, want %s", got.ID.Hex(), g.ID.Hex())
			}
		})
	}

	rec := serve(router, testutil.NewRequest(http.MethodGet, "/groups/nope"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList_FiltersByName(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateGroup(ctx, "Asha", "A1")
	fixtures.CreateGroup(ctx, "Ashoka", "A2")
	fixtures.CreateGroup(ctx, "Bhavani", "B1")

	rec := serve(router, testutil.NewRequest(http.MethodGet, "/groups?q=ash"))
	rec.AssertStatus(t, http.StatusOK)
	var list []models.Group
	rec.DecodeEnvelope(t, &list)
	if len(list) != 2 {
		t.Fatalf("got %d groups, want 2", len(list))
	}
	if list[0].Name != "Asha" || list[1].Name != "Ashoka" {
		t.Errorf("order = %q, %q", list[0].Name, list[1].Name)
	}

	rec = serve(router, testutil.NewRequest(http.MethodGet, "/groups?limit=0"))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec = serve(router, testutil.NewRequest(http.MethodGet, "/groups?after=not-a-cursor!"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeList_KeysetPages(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	for i, name := range []string{"Durga", "Asha", "Chandra", "Bhavani", "Eshwari"} {
		fixtures.CreateGroup(ctx, name, string(rune('P'+i)))
	}

	var seen []string
	target := "/groups?limit=2"
	for page := 0; page < 5 && target != ""; page++ {
		rec := serve(router, testutil.NewRequest(http.MethodGet, target))
		rec.AssertStatus(t, http.StatusOK)
		var list []models.Group
		rec.DecodeEnvelope(t, &list)
		for _, g := range list {
			seen = append(seen, g.Name)
		}
		target = ""
		if next := rec.Header().Get(paging.HeaderNext); next != "" {
			target = "/groups?limit=2&after=" + url.QueryEscape(next)
		}
	}
	want := []string{"Asha", "Bhavani", "Chandra", "Durga", "Eshwari"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("pages = %v, want %v", seen, want)
	}
}

func TestHandleUpdate(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	day := 10
	g := fixtures.CreateGroupWith(ctx, models.Group{Name: "Kaveri", Code: "K1", MeetingDay1: &day, SavingPerMember: 100})
	fixtures.CreateGroup(ctx, "Ganga", "G1")

	t.Run("clears a meeting day and sets quota", func(t *testing.T) {
		rec := serve(router, testutil.NewJSONRequest(http.MethodPatch, "/groups/"+g.ID.Hex(),
			`{"meeting_date_1_day":null,"meeting_date_2_day":15,"saving_per_member":150}`))
		rec.AssertStatus(t, http.StatusOK)
		var got models.Group
		rec.DecodeEnvelope(t, &got)
		if got.MeetingDay1 != nil {
			t.Errorf("meeting day 1 = %d, want cleared", *got.MeetingDay1)
		}
		if got.MeetingDay2 == nil || *got.MeetingDay2 != 15 {
			t.Errorf("meeting day 2 = %v, want 15", got.MeetingDay2)
		}
		if got.SavingPerMember != 150 {
			t.Errorf("saving_per_member = %v, want 150", got.SavingPerMember)
		}
	})

	t.Run("code is immutable", func(t *testing.T) {
		rec := serve(router, testutil.NewJSONRequest(http.MethodPatch, "/groups/"+g.ID.Hex(), `{"code":"K2"}`))
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("same code is accepted", func(t *testing.T) {
		rec := serve(router, testutil.NewJSONRequest(http.MethodPatch, "/groups/"+g.ID.Hex(), `{"code":"K1"}`))
		rec.AssertStatus(t, http.StatusOK)
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := serve(router, testutil.NewJSONRequest(http.MethodPatch, "/groups/"+g.ID.Hex(), `{"name":"ganga"}`))
		rec.AssertStatus(t, http.StatusConflict)
	})

	t.Run("day out of range", func(t *testing.T) {
		rec := serve(router, testutil.NewJSONRequest(http.MethodPatch, "/groups/"+g.ID.Hex(), `{"meeting_date_2_day":0}`))
		rec.AssertStatus(t, http.StatusBadRequest)
	})
}
