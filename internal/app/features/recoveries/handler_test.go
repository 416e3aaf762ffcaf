package recoveries_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/shgledger/internal/app/features/recoveries"
	"github.com/dalemusser/shgledger/internal/app/recovery"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubService struct {
	calls    []string
	groupRef string
	date     string
	entries  []recovery.EntryInput
	memberID primitive.ObjectID
	photo    string
	from, to string
	err      error
}

func (s *stubService) record(op, groupRef, date string) {
	s.calls = append(s.calls, op)
	s.groupRef = groupRef
	s.date = date
}

func (s *stubService) RegisterSession(_ context.Context, groupRef, date string, entries []recovery.EntryInput) (models.RecoverySession, error) {
	s.record("register", groupRef, date)
	s.entries = entries
	return models.RecoverySession{DateKey: "2024-03-05"}, s.err
}

func (s *stubService) UpsertMemberEntry(_ context.Context, groupRef, date string, in recovery.EntryInput) (models.RecoverySession, error) {
	s.record("upsert", groupRef, date)
	s.entries = []recovery.EntryInput{in}
	return models.RecoverySession{DateKey: "2024-03-05"}, s.err
}

func (s *stubService) RemoveMemberEntry(_ context.Context, groupRef, date string, memberID primitive.ObjectID) (models.RecoverySession, error) {
	s.record("remove", groupRef, date)
	s.memberID = memberID
	return models.RecoverySession{}, s.err
}

func (s *stubService) SetGroupPhoto(_ context.Context, groupRef, date, photoRef string) (models.RecoverySession, error) {
	s.record("photo", groupRef, date)
	s.photo = photoRef
	return models.RecoverySession{GroupPhoto: photoRef}, s.err
}

func (s *stubService) GetSessionByDate(_ context.Context, groupRef, date string) (models.RecoverySession, error) {
	s.record("get", groupRef, date)
	return models.RecoverySession{DateKey: "2024-03-05"}, s.err
}

func (s *stubService) ListSessions(_ context.Context, groupRef, from, to string) ([]models.RecoverySession, error) {
	s.record("list", groupRef, "")
	s.from, s.to = from, to
	return []models.RecoverySession{}, s.err
}

func (s *stubService) GetPriorRecoveryData(_ context.Context, groupRef string, memberID primitive.ObjectID, date string) (recovery.PriorData, error) {
	s.record("prior", groupRef, date)
	s.memberID = memberID
	return recovery.PriorData{}, s.err
}

func newRouter(svc recoveries.Service) http.Handler {
	h := recoveries.NewHandler(svc, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/groups/{id}/recoveries", recoveries.Routes(h))
	return r
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestRegister_FoldsLegacyOtherAndSanitizesRemarks(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)
	member := primitive.NewObjectID()

	body := `{"date":"05/03/2024","recoveries":[{"member_id":"` + member.Hex() + `",
		"amounts":{"saving":100,"other":10,"other1":15.5},
		"payment_mode":{"cash":true},
		"remarks":"<b>paid</b> early"}]}`
	rec := do(t, router, http.MethodPost, "/groups/SHG-7/recoveries", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if env := decode(t, rec); !env.Success {
		t.Errorf("success = false, want true")
	}
	if svc.groupRef != "SHG-7" || svc.date != "05/03/2024" {
		t.Errorf("service got group %q date %q", svc.groupRef, svc.date)
	}
	if len(svc.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(svc.entries))
	}
	e := svc.entries[0]
	if e.MemberID != member {
		t.Errorf("member id = %s, want %s", e.MemberID.Hex(), member.Hex())
	}
	if e.Amounts.Other != 25.5 {
		t.Errorf("other = %v, want 25.5", e.Amounts.Other)
	}
	if e.Amounts.Saving != 100 {
		t.Errorf("saving = %v, want 100", e.Amounts.Saving)
	}
	if e.Remarks != "paid early" {
		t.Errorf("remarks = %q, want %q", e.Remarks, "paid early")
	}
	if !e.PaymentMode.Cash || e.PaymentMode.Online {
		t.Errorf("payment mode = %+v", e.PaymentMode)
	}
}

func TestRegister_RejectsBadInput(t *testing.T) {
	member := primitive.NewObjectID().Hex()
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"unknown field", `{"date":"05/03/2024","recoveries":[],"bogus":1}`},
		{"missing date", `{"recoveries":[]}`},
		{"impossible date", `{"date":"31/02/2024","recoveries":[]}`},
		{"bad member id", `{"date":"05/03/2024","recoveries":[{"member_id":"nope"}]}`},
		{"negative amount", `{"date":"05/03/2024","recoveries":[{"member_id":"` + member + `","amounts":{"loan":-1}}]}`},
		{"bad attendance", `{"date":"05/03/2024","recoveries":[{"member_id":"` + member + `","attendance":"late"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			rec := do(t, newRouter(svc), http.MethodPost, "/groups/g1/recoveries", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (%s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
			env := decode(t, rec)
			if env.Success || env.Message == "" {
				t.Errorf("envelope = %+v, want failure with message", env)
			}
			if len(svc.calls) != 0 {
				t.Errorf("service called: %v", svc.calls)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	member := primitive.NewObjectID().Hex()
	upsert := `{"date":"05/03/2024","entry":{"member_id":"` + member + `"}}`
	tests := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"session exists", recovery.ErrSessionExists, http.StatusConflict, recovery.ErrSessionExists.Error()},
		{"concurrent update", recovery.ErrConcurrentUpdate, http.StatusConflict, recovery.ErrConcurrentUpdate.Error()},
		{"group not found", recovery.ErrGroupNotFound, http.StatusNotFound, recovery.ErrGroupNotFound.Error()},
		{"internal", errors.New("socket closed"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			rec := do(t, newRouter(svc), http.MethodPut, "/groups/g1/recoveries/entries", upsert)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if env := decode(t, rec); env.Message != tt.msg {
				t.Errorf("message = %q, want %q", env.Message, tt.msg)
			}
		})
	}
}

func TestUpsertEntry(t *testing.T) {
	svc := &stubService{}
	member := primitive.NewObjectID()
	body := `{"date":"2024-03-05","entry":{"member_id":"` + member.Hex() + `","attendance":"absent","recovery_by_other":true,"amounts":{"loan":500}}}`

	rec := do(t, newRouter(svc), http.MethodPut, "/groups/g1/recoveries/entries", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(svc.calls) != 1 || svc.calls[0] != "upsert" {
		t.Fatalf("calls = %v", svc.calls)
	}
	e := svc.entries[0]
	if e.Attendance != models.Absent || !e.RecoveryByOther || e.Amounts.Loan != 500 {
		t.Errorf("entry = %+v", e)
	}
}

func TestGetByDate(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	rec := do(t, router, http.MethodGet, "/groups/g1/recoveries", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, router, http.MethodGet, "/groups/g1/recoveries?date=05/03/2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var rs models.RecoverySession
	if err := json.Unmarshal(decode(t, rec).Data, &rs); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if rs.DateKey != "2024-03-05" {
		t.Errorf("date_key = %q", rs.DateKey)
	}

	svc.err = recovery.ErrSessionNotFound
	rec = do(t, router, http.MethodGet, "/groups/g1/recoveries?date=06/03/2024", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListRange(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newRouter(svc), http.MethodGet, "/groups/g1/recoveries/range?from=01/03/2024&to=31/03/2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.from != "01/03/2024" || svc.to != "31/03/2024" {
		t.Errorf("range = %q..%q", svc.from, svc.to)
	}

	rec = do(t, newRouter(&stubService{}), http.MethodGet, "/groups/g1/recoveries/range?from=01/03/2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing to: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPrior(t *testing.T) {
	svc := &stubService{}
	member := primitive.NewObjectID()
	rec := do(t, newRouter(svc), http.MethodGet, "/groups/g1/recoveries/prior?member_id="+member.Hex()+"&date=05/03/2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.memberID != member {
		t.Errorf("member = %s, want %s", svc.memberID.Hex(), member.Hex())
	}

	rec = do(t, newRouter(&stubService{}), http.MethodGet, "/groups/g1/recoveries/prior?member_id=xyz&date=05/03/2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad member: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetPhoto(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newRouter(svc), http.MethodPut, "/groups/g1/recoveries/photo", `{"date":"05/03/2024","photo":"photos/g1/2024-03-05.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.photo != "photos/g1/2024-03-05.jpg" {
		t.Errorf("photo = %q", svc.photo)
	}

	rec = do(t, newRouter(&stubService{}), http.MethodPut, "/groups/g1/recoveries/photo", `{"date":"05/03/2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing photo: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRemoveEntry(t *testing.T) {
	svc := &stubService{}
	member := primitive.NewObjectID()
	rec := do(t, newRouter(svc), http.MethodDelete, "/groups/g1/recoveries/entries/"+member.Hex()+"?date=05/03/2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.memberID != member || svc.date != "05/03/2024" {
		t.Errorf("service got member %s date %q", svc.memberID.Hex(), svc.date)
	}

	rec = do(t, newRouter(&stubService{}), http.MethodDelete, "/groups/g1/recoveries/entries/zzz?date=05/03/2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad member: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
