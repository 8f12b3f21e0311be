package ledger

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DeriveSalt produces the per-transfer salt from the transfer identity and
// both participants. The monotonic id makes the salt unique even when the
// same pair of addresses transact repeatedly.
func DeriveSalt(id uint64, sender, receiver string) []byte {
	h := sha3.NewLegacyKeccak256()
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	h.Write(idBytes[:])
	h.Write([]byte(sender))
	h.Write([]byte(receiver))
	return h.Sum(nil)
}

// Commit binds a password to a salt. Only the commitment is ever stored.
func Commit(password string, salt []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(password))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyCommitment reports whether password matches the stored commitment.
// A mismatch is a plain false, not an error; the claim path decides what to
// do with it.
func VerifyCommitment(password, commitment string, salt []byte) bool {
	computed := Commit(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(commitment)) == 1
}
