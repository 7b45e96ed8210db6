package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	end := time.Date(2025, 9, 1, 8, 10, 0, 0, time.UTC)
	evt := model.SessionEvent{
		Type:      model.EventSessionExpired,
		SessionID: uuid.New(),
		At:        end.Add(time.Second),
		EndTime:   &end,
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "pin")

	got, err := Decode(string(payload))
	require.NoError(t, err)
	assert.Equal(t, evt.Type, got.Type)
	assert.Equal(t, evt.SessionID, got.SessionID)
	require.NotNil(t, got.EndTime)
	assert.True(t, end.Equal(*got.EndTime))

	_, err = Decode("not json")
	assert.Error(t, err)
}
