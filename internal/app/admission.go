// Package app holds the admission pipeline itself: the gate, the upload
// tracker and the room visit lifecycle.
package app

import (
	"strings"

	"github.com/greenroom-dev/greenroom/internal/domain"
)

// CanJoin is the admission gate: room entry is allowed iff both names are
// non-empty after trimming and the tracked upload is ready. Pure function,
// no I/O; there is no other path into a room.
func CanJoin(room, participant string, status domain.UploadStatus) bool {
	return strings.TrimSpace(room) != "" &&
		strings.TrimSpace(participant) != "" &&
		status == domain.UploadReady
}
