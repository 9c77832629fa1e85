package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, message any) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_Record(t *testing.T) {
	store := new(StoreMock)
	var saved *models.AuditEntry
	store.On("InsertAuditEntry", mock.Anything, mock.AnythingOfType("*models.AuditEntry")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.AuditEntry)
		}).
		Return(nil).Once()

	r := NewRecorder(store, discardLogger())
	r.Record(context.Background(), Event{
		Actor:       &models.Actor{UserID: 7, Username: "root"},
		Action:      models.ActionRegistrationToggle,
		Target:      &models.Target{Table: "settings", RecordID: 1},
		Description: "closed",
		Before:      map[string]bool{"enabled": true},
		After:       map[string]bool{"enabled": false},
	})

	store.AssertExpectations(t)
	require.NotNil(t, saved)
	assert.Equal(t, models.ActionRegistrationToggle, saved.Action)
	assert.JSONEq(t, `{"enabled":true}`, string(saved.Before))
	assert.JSONEq(t, `{"enabled":false}`, string(saved.After))
}

func TestRecorder_StoreErrorIsSwallowed(t *testing.T) {
	store := new(StoreMock)
	store.On("InsertAuditEntry", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	pub := new(PublisherMock)

	r := NewRecorder(store, discardLogger(), WithPublisher(pub))
	assert.NotPanics(t, func() {
		r.Record(context.Background(), Event{Action: models.ActionLogin})
	})

	store.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRecorder_CanceledRequestContext(t *testing.T) {
	store := new(StoreMock)
	store.On("InsertAuditEntry", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(store, discardLogger()).Record(ctx, Event{Action: models.ActionLogout})
	store.AssertExpectations(t)
}

func TestRecorder_Publishes(t *testing.T) {
	store := new(StoreMock)
	store.On("InsertAuditEntry", mock.Anything, mock.Anything).Return(nil).Once()
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*models.AuditEntry")).
		Return(errors.New("broker gone")).Once()

	r := NewRecorder(store, discardLogger(), WithPublisher(pub))
	r.Record(context.Background(), Event{Action: models.ActionRoleChange})

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSnapshot(t *testing.T) {
	log := discardLogger()
	assert.Nil(t, snapshot(log, nil))
	assert.Equal(t, json.RawMessage(`{"a":1}`), snapshot(log, json.RawMessage(`{"a":1}`)))
	assert.Nil(t, snapshot(log, make(chan int)))
	assert.JSONEq(t, `{"role":"admin"}`, string(snapshot(log, map[string]string{"role": "admin"})))
}
