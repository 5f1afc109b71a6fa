package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"

	"smsgateway/internal/models"
	"smsgateway/internal/store"
)

func TestCreateContact(t *testing.T) {
	var got store.ContactInput
	h := newTestHandler(testConfig(), Deps{
		Contacts: stubContactStore{createFn: func(_ context.Context, _, userID string, in store.ContactInput) error {
			got = in
			return nil
		}},
	})
	rr := serve(t, h, http.MethodPost, "/contacts", `{"name":" Jane ","phone_number":"+254708215305","group_name":"vip"}`, "user-1")
	expectStatus(t, rr, http.StatusCreated)
	if got.Name != "Jane" || got.PhoneNumber != "+254708215305" || got.GroupName != "vip" {
		t.Fatalf("unexpected contact input: %#v", got)
	}

	rr = serve(t, h, http.MethodPost, "/contacts", `{"name":"Jane","phone_number":"0708"}`, "user-1")
	expectStatus(t, rr, http.StatusBadRequest)
	if body := errorBody(t, rr); !strings.Contains(body["error"], "phone_number") {
		t.Fatalf("expected phone_number in error, got %v", body)
	}
}

func TestContactLookupsAreOwnerScoped(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Contacts: stubContactStore{
			getFn: func(_ context.Context, userID, id string) (models.Contact, error) {
				if userID != "user-1" {
					return models.Contact{}, sql.ErrNoRows
				}
				return models.Contact{ID: id, UserID: userID}, nil
			},
			updateFn: func(_ context.Context, userID, _ string, _ store.ContactInput) (int64, error) {
				if userID != "user-1" {
					return 0, nil
				}
				return 1, nil
			},
			deleteFn: func(_ context.Context, userID, _ string) (int64, error) {
				if userID != "user-1" {
					return 0, nil
				}
				return 1, nil
			},
		},
	})
	update := `{"name":"Jane","phone_number":"+254708215305"}`

	expectStatus(t, serve(t, h, http.MethodGet, "/contacts/c-1", "", "user-1"), http.StatusOK)
	expectStatus(t, serve(t, h, http.MethodGet, "/contacts/c-1", "", "user-2"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodPut, "/contacts/c-1", update, "user-1"), http.StatusOK)
	expectStatus(t, serve(t, h, http.MethodPut, "/contacts/c-1", update, "user-2"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodDelete, "/contacts/c-1", "", "user-2"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodDelete, "/contacts/c-1", "", "user-1"), http.StatusOK)
}

func TestListContactsByGroup(t *testing.T) {
	var gotGroup string
	h := newTestHandler(testConfig(), Deps{
		Contacts: stubContactStore{listFn: func(_ context.Context, _, group string, _, _ int) ([]models.Contact, error) {
			gotGroup = group
			return []models.Contact{}, nil
		}},
	})
	expectStatus(t, serve(t, h, http.MethodGet, "/contacts?group=vip", "", "user-1"), http.StatusOK)
	if gotGroup != "vip" {
		t.Fatalf("expected group filter, got %q", gotGroup)
	}
}

func TestTemplateContentLimit(t *testing.T) {
	created := 0
	h := newTestHandler(testConfig(), Deps{
		Templates: stubTemplateStore{createFn: func(context.Context, string, string, string, string) error {
			created++
			return nil
		}},
	})
	ok := `{"name":"greeting","content":"` + strings.Repeat("é", 160) + `"}`
	tooLong := `{"name":"greeting","content":"` + strings.Repeat("a", 161) + `"}`

	expectStatus(t, serve(t, h, http.MethodPost, "/templates", ok, "user-1"), http.StatusCreated)
	expectStatus(t, serve(t, h, http.MethodPost, "/templates", tooLong, "user-1"), http.StatusBadRequest)
	expectStatus(t, serve(t, h, http.MethodPost, "/templates", `{"name":"greeting"}`, "user-1"), http.StatusBadRequest)
	if created != 1 {
		t.Fatalf("expected one template created, got %d", created)
	}
}

func TestTemplateNotFound(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Templates: stubTemplateStore{
			getFn: func(context.Context, string, string) (models.SMSTemplate, error) {
				return models.SMSTemplate{}, sql.ErrNoRows
			},
			updateFn: func(context.Context, string, string, string, string) (int64, error) { return 0, nil },
			deleteFn: func(context.Context, string, string) (int64, error) { return 0, nil },
		},
	})
	expectStatus(t, serve(t, h, http.MethodGet, "/templates/t-1", "", "user-1"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodPut, "/templates/t-1", `{"name":"a","content":"b"}`, "user-1"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodDelete, "/templates/t-1", "", "user-1"), http.StatusNotFound)
}
