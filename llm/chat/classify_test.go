package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		resp    string
		wantErr string
	}{
		{
			name: "plain json",
			raw:  `{"is_data_required": true, "response": "needs news"}`,
			want: true,
			resp: "needs news",
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"is_data_required\": false, \"response\": \"Paris\"}\n```",
			resp: "Paris",
		},
		{
			name: "bare fence",
			raw:  "```\n{\"is_data_required\": false, \"response\": \"\"}\n```\n",
		},
		{name: "free text", raw: "It needs the news.", wantErr: "invalid classification JSON"},
		{name: "missing flag", raw: `{"response": "x"}`, wantErr: "is_data_required"},
		{name: "missing response", raw: `{"is_data_required": true}`, wantErr: "response"},
		{name: "wrong type", raw: `{"is_data_required": "yes", "response": "x"}`, wantErr: "invalid classification JSON"},
		{name: "trailing text", raw: `{"is_data_required": true, "response": "x"} hope this helps`, wantErr: "unexpected data"},
		{name: "empty", raw: "", wantErr: "invalid classification JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.raw)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RequiresLiveData)
			assert.Equal(t, tt.resp, got.FallbackResponse)
		})
	}
}
