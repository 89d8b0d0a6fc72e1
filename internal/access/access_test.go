package access

import (
	"testing"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/models"
)

func TestCanMutate(t *testing.T) {
	video := models.Video{ID: "v1", OwnerID: "alice"}
	comment := models.Comment{ID: "c1", VideoID: "v1", OwnerID: "bob"}

	tests := []struct {
		name  string
		actor string
		rec   Owned
		also  []Owned
		want  bool
	}{
		{"video owner", "alice", video, nil, true},
		{"video stranger", "bob", video, nil, false},
		{"anonymous", "", Owner(""), nil, false},
		{"comment owner", "bob", comment, []Owned{video}, true},
		{"comment video owner", "alice", comment, []Owned{video}, true},
		{"comment stranger", "carol", comment, []Owned{video}, false},
		{"comment owner only rule", "alice", comment, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutate(tt.actor, tt.rec, tt.also...); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestCheckReturnsForbidden(t *testing.T) {
	err := Check("mallory", "playlist", models.Playlist{OwnerID: "alice"})
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("expected authorization error got %v", err)
	}
	if err := Check("alice", "tweet", models.Tweet{OwnerID: "alice"}); err != nil {
		t.Fatalf("expected owner to pass got %v", err)
	}
}
