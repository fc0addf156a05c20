package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/jobs"
)

type fakeHTTPClient struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	status   int
	err      error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(body))
	}
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (f *fakeHTTPClient) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestNotificationService(client *fakeHTTPClient) *NotificationService {
	svc := NewNotificationService(NotificationConfig{
		Enabled:    true,
		WebhookURL: "https://hooks.example.com/absences",
		Throttle:   time.Millisecond,
	}, nil)
	svc.client = client
	return svc
}

func absenceFixture() models.AbsenceNotification {
	return models.AbsenceNotification{
		StudentID:   "s1",
		StudentName: "Asha Verma",
		ParentPhone: "9876543210",
		Class:       "FE-A",
		Date:        "2026-03-02",
		Reason:      "absent",
	}
}

func TestHandleJobPostsWebhookPayload(t *testing.T) {
	client := &fakeHTTPClient{}
	svc := newTestNotificationService(client)

	err := svc.handleJob(context.Background(), jobs.Job{ID: "job-1", Type: absenceJobType, Payload: absenceFixture()})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://hooks.example.com/absences", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(client.bodies[0]), &payload))
	assert.Equal(t, "Asha Verma", payload["studentName"])
	assert.Equal(t, "9876543210", payload["parentPhone"])
	assert.Equal(t, "FE-A", payload["class"])
}

func TestHandleJobSwallowsDeliveryFailure(t *testing.T) {
	client := &fakeHTTPClient{err: errors.New("connection refused")}
	svc := newTestNotificationService(client)

	err := svc.handleJob(context.Background(), jobs.Job{ID: "job-1", Type: absenceJobType, Payload: absenceFixture()})
	assert.NoError(t, err)
}

func TestHandleJobSwallowsWebhookErrorStatus(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusBadGateway}
	svc := newTestNotificationService(client)

	err := svc.handleJob(context.Background(), jobs.Job{ID: "job-1", Type: absenceJobType, Payload: absenceFixture()})
	assert.NoError(t, err)
	assert.Len(t, client.requests, 1)
}

func TestHandleJobIgnoresForeignPayload(t *testing.T) {
	client := &fakeHTTPClient{}
	svc := newTestNotificationService(client)

	err := svc.handleJob(context.Background(), jobs.Job{ID: "job-1", Type: absenceJobType, Payload: "not a notification"})
	assert.NoError(t, err)
	assert.Empty(t, client.requests)
}

func TestEnqueueAbsencesDisabledIsNoOp(t *testing.T) {
	svc := NewNotificationService(NotificationConfig{Enabled: false}, nil)
	// Queue was never started; enqueueing while disabled must not block.
	svc.EnqueueAbsences([]models.AbsenceNotification{absenceFixture()})
}

func TestEnqueueAbsencesMissingURLIsNoOp(t *testing.T) {
	svc := NewNotificationService(NotificationConfig{Enabled: true}, nil)
	svc.EnqueueAbsences([]models.AbsenceNotification{absenceFixture()})
}

func TestNotificationDeliveryThroughQueue(t *testing.T) {
	client := &fakeHTTPClient{}
	svc := newTestNotificationService(client)

	svc.Start(context.Background())
	svc.EnqueueAbsences([]models.AbsenceNotification{absenceFixture(), {
		StudentID:   "s2",
		StudentName: "Ravi Kumar",
		ParentPhone: "9123456780",
		Class:       "FE-A",
		Date:        "2026-03-02",
		Reason:      "absent",
	}})

	assert.Eventually(t, func() bool { return client.requestCount() == 2 },
		2*time.Second, 10*time.Millisecond)
	svc.Stop()
}
