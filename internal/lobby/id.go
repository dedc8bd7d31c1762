package lobby

import (
	"crypto/rand"
	"strings"

	"github.com/park285/matrix-duel/internal/room"
)

const (
	idLength = 6
	// no 0/O, 1/I/L
	idAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// codeGen returns idLength characters of idAlphabet.
func codeGen() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return string(b), nil
}

// NormalizeID trims and upper-cases raw and checks it is a well-formed room id.
func NormalizeID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if len(id) != idLength {
		return "", room.ErrInvalidRoomID
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(idAlphabet, id[i]) < 0 {
			return "", room.ErrInvalidRoomID
		}
	}
	return id, nil
}
