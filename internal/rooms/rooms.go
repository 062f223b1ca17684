// Package rooms derives room IDs and maps them back to room types.
//
// IDs are built from parts joined with "_" and end with the rooms version.
// Bumping the version starts a fresh orchestrator and fresh rooms, which is
// how breaking schema changes are rolled out.
package rooms

import (
	"crypto/rand"
	"strconv"
	"strings"

	"gridloop/internal/model"

	"github.com/cespare/xxhash/v2"
)

const (
	Version   = "d"
	separator = "_"

	// PublicScope is the orchestrator scope for casual play
	PublicScope = "public"
)

func makeID(parts ...string) string {
	return strings.Join(append(parts, Version), separator)
}

// OrchestratorRoomID is the room holding assignments for scope
func OrchestratorRoomID(scope string) string {
	return makeID(string(model.RoomTypeOrchestrator), scope)
}

// PublicPlayRoomID is the index-th casual play room
func PublicPlayRoomID(index int) string {
	return makeID(string(model.RoomTypePlay), "i"+strconv.Itoa(index))
}

// ShareRoomID is the index-th room showing content with the given scope
func ShareRoomID(scope string, index int) string {
	return makeID(string(model.RoomTypeShare), scope, "i"+strconv.Itoa(index))
}

// CandidateRoomID is the index-th candidate ID tried for a room type
func CandidateRoomID(roomType model.RoomType, scope string, index int) string {
	if roomType == model.RoomTypeShare {
		return ShareRoomID(scope, index)
	}
	return PublicPlayRoomID(index)
}

// RandomPlayRoomID creates a private play room ID for collaboration links
func RandomPlayRoomID() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const idLen = 12

	b := make([]byte, idLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	id := make([]byte, idLen)
	for i := range id {
		id[i] = chars[int(b[i])%len(chars)]
	}
	return makeID(string(model.RoomTypePlay), "r"+string(id)), nil
}

// ScopeKey hashes shared content into a short ID-safe scope
func ScopeKey(content string) string {
	return strconv.FormatUint(xxhash.Sum64String(content), 36)
}

// TypeForRoomID parses the room type out of a room ID
func TypeForRoomID(roomID string) (model.RoomType, bool) {
	parts := strings.Split(roomID, separator)
	if len(parts) < 2 || parts[len(parts)-1] != Version {
		return "", false
	}
	t := model.RoomType(parts[0])
	if !ValidType(t) {
		return "", false
	}
	return t, true
}

// ValidType reports whether t is a known room type
func ValidType(t model.RoomType) bool {
	switch t {
	case model.RoomTypeOrchestrator, model.RoomTypePlay, model.RoomTypeShare:
		return true
	}
	return false
}
