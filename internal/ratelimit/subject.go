package ratelimit

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const unknownAddress = "unknown"

// SubjectKey identifies who is acting: an authenticated user, or else a
// hashed client address.
type SubjectKey struct {
	kind string
	id   string
}

func UserSubject(userID int64) SubjectKey {
	return SubjectKey{kind: "user", id: strconv.FormatInt(userID, 10)}
}

// AddressSubject keys on a normalized client address. Only a BLAKE2b digest
// of the address reaches the counter store.
func AddressSubject(addr string) SubjectKey {
	sum := blake2b.Sum256([]byte(NormalizeAddress(addr)))
	return SubjectKey{kind: "ip", id: hex.EncodeToString(sum[:16])}
}

// SubjectFor prefers the user id and falls back to the address.
func SubjectFor(userID int64, addr string) SubjectKey {
	if userID != 0 {
		return UserSubject(userID)
	}
	return AddressSubject(addr)
}

func (s SubjectKey) IsZero() bool {
	return s.kind == ""
}

func (s SubjectKey) String() string {
	return s.kind + ":" + s.id
}

// StorageKey is the counter store key for action, e.g. ratelimit:comment_add:user:42.
func (s SubjectKey) StorageKey(action Action) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", action, s.kind, s.id)
}

// ClientAddress picks the address to key anonymous clients on. With
// trustProxy the first X-Forwarded-For hop wins over the socket address.
func ClientAddress(remoteAddr, forwardedFor string, trustProxy bool) string {
	if trustProxy && forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return NormalizeAddress(first)
		}
	}
	return NormalizeAddress(remoteAddr)
}

// NormalizeAddress strips ports and brackets and returns the canonical form
// of the IP, or "unknown" when addr is not an IP.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")

	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return unknownAddress
	}
	return ip.Unmap().WithZone("").String()
}
