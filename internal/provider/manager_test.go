package provider

import (
	"reflect"
	"testing"

	"github.com/fusesearch/fuse-search/internal/retrieval"
)

func webTable() map[retrieval.Lane]Table {
	return map[retrieval.Lane]Table{
		retrieval.LaneWebSearch: {
			Keyed:   []string{"brave", "serper"},
			Keyless: []string{"duckduckgo", "wikipedia"},
		},
	}
}

func TestManager_Order(t *testing.T) {
	tests := []struct {
		name            string
		credentials     map[string]string
		keylessFallback bool
		want            [][]string
	}{
		{
			name:            "all keyed configured with fallback",
			credentials:     map[string]string{"brave": "k1", "serper": "k2"},
			keylessFallback: true,
			want:            [][]string{{"brave", "serper"}, {"duckduckgo", "wikipedia"}},
		},
		{
			name:            "partial keyed preserves declaration order",
			credentials:     map[string]string{"serper": "k2"},
			keylessFallback: true,
			want:            [][]string{{"serper"}, {"duckduckgo", "wikipedia"}},
		},
		{
			name:            "no keyed falls back to keyless only",
			credentials:     nil,
			keylessFallback: true,
			want:            [][]string{{"duckduckgo", "wikipedia"}},
		},
		{
			name:            "no keyed and fallback disabled disables the lane",
			credentials:     nil,
			keylessFallback: false,
			want:            nil,
		},
		{
			name:            "keyed without fallback",
			credentials:     map[string]string{"brave": "k1"},
			keylessFallback: false,
			want:            [][]string{{"brave"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(webTable(), tt.credentials, tt.keylessFallback)
			got := m.Order(retrieval.LaneWebSearch)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_OrderIsStable(t *testing.T) {
	m := NewManager(webTable(), map[string]string{"brave": "k", "serper": "k"}, true)

	first := m.Order(retrieval.LaneWebSearch)
	for i := 0; i < 10; i++ {
		if got := m.Order(retrieval.LaneWebSearch); !reflect.DeepEqual(got, first) {
			t.Fatalf("ordering changed between calls: %v vs %v", got, first)
		}
	}
}

func TestManager_UnknownLane(t *testing.T) {
	m := NewManager(webTable(), nil, true)
	if got := m.Order(retrieval.LaneVectorSearch); got != nil {
		t.Errorf("expected nil order for unconfigured lane, got %v", got)
	}
}
