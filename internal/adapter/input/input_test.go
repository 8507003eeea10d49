package input

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/model"
)

func TestStdinAdapter_Import(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Request
	}{
		{
			name:  "empty",
			input: "  \n",
		},
		{
			name:  "json array",
			input: `[{"title": "A", "priority": "high"}, {"title": "", "body": ""}, {"id": "b", "title": "B"}]`,
			want: []Request{
				{Title: "A", Priority: "high"},
				{ID: "b", Title: "B"},
			},
		},
		{
			name:  "json lines",
			input: "{\"title\": \"A\"}\n\n{\"title\": \"B\", \"screen\": \"home\"}\n",
			want: []Request{
				{Title: "A"},
				{Title: "B", Screen: "home"},
			},
		},
		{
			name:  "dunst history",
			input: dunstSample,
			want: []Request{
				{ID: "downloads", Priority: "middle", Title: "Download Complete", Body: "myfile.zip has finished downloading"},
				{ID: "dunst:124", Priority: "high", Title: "New Message", Body: "Hello from Sam"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewStdinAdapterWithReader(strings.NewReader(tt.input))
			got, err := a.Import(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStdinAdapter_ImportErrors(t *testing.T) {
	_, err := NewStdinAdapterWithReader(strings.NewReader("{\"title\": \"A\"}\nnot json\n")).
		Import(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = NewStdinAdapterWithReader(strings.NewReader(`[{"title": 1}]`)).
		Import(context.Background())
	assert.Error(t, err)
}

func TestStdinAdapter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStdinAdapterWithReader(strings.NewReader(`[]`)).Import(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_ResolvePriority(t *testing.T) {
	p, err := Request{}.ResolvePriority(model.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, p)

	p, err = Request{Priority: "emergency"}.ResolvePriority(model.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityEmergency, p)

	_, err = Request{Priority: "urgent"}.ResolvePriority(model.PriorityLow)
	assert.Error(t, err)
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter("stdin")
	require.NoError(t, err)
	assert.Equal(t, "stdin", a.Name())

	a, err = NewAdapter("dunst")
	require.NoError(t, err)
	assert.Equal(t, "dunst", a.Name())

	_, err = NewAdapter("mako")
	var aerr *AdapterError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "mako", aerr.Source)
}
