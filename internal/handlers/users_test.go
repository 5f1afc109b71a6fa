package handlers

import (
	"net/http"
	"testing"

	"smsgateway/internal/jobs"
)

func TestRequestAccountDeletion(t *testing.T) {
	var queued string
	h := newTestHandler(testConfig(), Deps{
		Deletions: stubDeletionQueue{enqueueFn: func(userID string) (jobs.Job, error) {
			queued = userID
			return jobs.Job{ID: "job-1", UserID: userID, Status: jobs.StatusQueued}, nil
		}},
	})
	rr := serve(t, h, http.MethodDelete, "/me", "", "user-1")
	expectStatus(t, rr, http.StatusAccepted)
	var job jobs.Job
	decodeBody(t, rr, &job)
	if queued != "user-1" || job.ID != "job-1" || job.Status != jobs.StatusQueued {
		t.Fatalf("unexpected job: %#v", job)
	}
}

func TestRequestAccountDeletionQueueFull(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Deletions: stubDeletionQueue{enqueueFn: func(string) (jobs.Job, error) {
			return jobs.Job{}, jobs.ErrQueueFull
		}},
	})
	expectStatus(t, serve(t, h, http.MethodDelete, "/me", "", "user-1"), http.StatusServiceUnavailable)
}

func TestAccountDeletionStatusAndCancel(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Deletions: stubDeletionQueue{
			getFn: func(userID, jobID string) (jobs.Job, error) {
				if jobID != "job-1" {
					return jobs.Job{}, jobs.ErrJobNotFound
				}
				return jobs.Job{ID: jobID, UserID: userID, Status: jobs.StatusRunning}, nil
			},
			cancelFn: func(userID, jobID string) (jobs.Job, error) {
				if jobID == "done" {
					return jobs.Job{ID: jobID, Status: jobs.StatusCompleted}, jobs.ErrJobNotCancellable
				}
				return jobs.Job{ID: jobID, UserID: userID, Status: jobs.StatusCancelled}, nil
			},
		},
	})

	rr := serve(t, h, http.MethodGet, "/me/deletion/job-1", "", "user-1")
	expectStatus(t, rr, http.StatusOK)
	var job jobs.Job
	decodeBody(t, rr, &job)
	if job.Status != jobs.StatusRunning {
		t.Fatalf("unexpected job: %#v", job)
	}

	expectStatus(t, serve(t, h, http.MethodGet, "/me/deletion/other", "", "user-1"), http.StatusNotFound)
	expectStatus(t, serve(t, h, http.MethodDelete, "/me/deletion/job-1", "", "user-1"), http.StatusOK)
	expectStatus(t, serve(t, h, http.MethodDelete, "/me/deletion/done", "", "user-1"), http.StatusConflict)
	expectStatus(t, serve(t, h, http.MethodDelete, "/me", "", ""), http.StatusUnauthorized)
}

func TestWSBalancesRequiresToken(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{})
	expectStatus(t, serve(t, h, http.MethodGet, "/ws/balances", "", ""), http.StatusUnauthorized)
	expectStatus(t, serve(t, h, http.MethodGet, "/ws/balances?token=bogus", "", ""), http.StatusUnauthorized)
}
