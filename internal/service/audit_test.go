package service

import (
	"context"
	"encoding/json"
	"testing"

	"quiz_engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditLogWriter struct {
	logs []model.AuditLog
}

func (w *fakeAuditLogWriter) Create(_ context.Context, entry *model.AuditLog) error {
	w.logs = append(w.logs, *entry)
	return nil
}

type fakePublisher struct {
	routingKey string
	payload    interface{}
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.routingKey = eventType
	p.payload = payload
	return nil
}

func sampleEntry() AuditEntry {
	return AuditEntry{
		Action:     AuditScoreCorrected,
		ResultID:   "r1",
		OperatorID: "t1",
		Summary:    "summary",
		Changes:    []string{"score: 1 -> 2"},
	}
}

func TestDBAuditorWritesAuditLog(t *testing.T) {
	w := &fakeAuditLogWriter{}

	require.NoError(t, NewDBAuditor(w).Emit(context.Background(), sampleEntry()))

	require.Len(t, w.logs, 1)
	assert.Equal(t, "quiz_result.score_corrected", w.logs[0].Action)
	assert.Equal(t, "r1", w.logs[0].ResultID)
	assert.Equal(t, []string{"score: 1 -> 2"}, []string(w.logs[0].Changes))
}

func TestAMQPAuditorRoutesByAction(t *testing.T) {
	p := &fakePublisher{}

	require.NoError(t, NewAMQPAuditor(p).Emit(context.Background(), sampleEntry()))

	assert.Equal(t, string(AuditScoreCorrected), p.routingKey)
	body, err := json.Marshal(p.payload)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"resultId":"r1"`)
}

func TestLogAuditorNeverFails(t *testing.T) {
	assert.NoError(t, LogAuditor{}.Emit(context.Background(), sampleEntry()))
}
