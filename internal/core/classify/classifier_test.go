package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/mocks"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  constants.RecordType
	}{
		{"prescription", constants.Prescription},
		{"  LAB_RESULT\n", constants.LabResult},
		{"X-Ray", constants.XRay},
		{"mri.", constants.MRI},
		{"other", constants.Other},
		{"ultrasound report", constants.Other},
		{"", constants.Other},
	}
	for _, tt := range tests {
		m := mocks.NewMockCompleter().Respond(llm.OpClassify, tt.reply)
		got, err := New(m, Config{}, quiet).Classify(context.Background(), "some text")
		require.NoError(t, err, tt.reply)
		assert.Equal(t, tt.want, got, tt.reply)
	}
}

func TestClassify_RequestShape(t *testing.T) {
	m := mocks.NewMockCompleter().Respond(llm.OpClassify, "xray")
	_, err := New(m, Config{MaxInputChars: 5}, quiet).Classify(context.Background(), "Chest radiograph, PA view")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, float32(0), reqs[0].Temperature)
	assert.Contains(t, reqs[0].User, "Chest")
	assert.NotContains(t, reqs[0].User, "radiograph")
	assert.Contains(t, reqs[0].System, "mri")
}

func TestClassify_Error(t *testing.T) {
	m := mocks.NewMockCompleter().Fail(llm.OpClassify, errors.New("503"))
	_, err := New(m, Config{}, quiet).Classify(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrClassification)
}

func TestClassify_Timeout(t *testing.T) {
	m := mocks.NewMockCompleter().BlockUntilDone()
	_, err := New(m, Config{Timeout: 20 * time.Millisecond}, quiet).Classify(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrClassification)
	assert.ErrorIs(t, err, common.ErrTimeout)
}
