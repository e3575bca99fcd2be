package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		state   LifecycleState
		event   LifecycleEvent
		want    LifecycleState
		wantErr error
	}{
		{"archive visible", StateVisible, EventDelete, StateArchived, nil},
		{"delete archived", StateArchived, EventDelete, StateDeleted, nil},
		{"restore archived", StateArchived, EventRestore, StateVisible, nil},
		{"restore visible", StateVisible, EventRestore, StateVisible, nil},
		{"delete deleted", StateDeleted, EventDelete, StateDeleted, ErrNotFound},
		{"restore deleted", StateDeleted, EventRestore, StateDeleted, ErrNotFound},
		{"unknown event", StateVisible, LifecycleEvent("purge"), StateVisible, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.event)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifecycleStateString(t *testing.T) {
	assert.Equal(t, "visible", StateVisible.String())
	assert.Equal(t, "archived", StateArchived.String())
	assert.Equal(t, "deleted", StateDeleted.String())
}
