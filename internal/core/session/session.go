// Package session defines the multiplayer session domain types and the
// backend capability interface the lobby client drives.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies one of the asynchronous backend interactions.
type Kind int

const (
	KindCreate Kind = iota
	KindFind
	KindJoin
)

// Kinds lists every operation kind in a stable order.
var Kinds = []Kind{KindCreate, KindFind, KindJoin}

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindFind:
		return "find"
	case KindJoin:
		return "join"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record describes one discoverable session. Records are immutable once a
// search produced them.
type Record struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	MapName           string `json:"map_name"`
	GameMode          string `json:"game_mode"`
	CurrentPlayers    uint   `json:"current_players"`
	MaxPlayers        uint   `json:"max_players"`
	PingMs            uint   `json:"ping_ms"`
	Public            bool   `json:"public"`
	PasswordProtected bool   `json:"password_protected"`

	// JoinHandle is an opaque backend token required to join.
	JoinHandle string `json:"join_handle"`

	// Generation is the search generation that produced the record. Zero
	// means the record did not come from a search.
	Generation uint64 `json:"-"`
}

// IsFull reports whether the session has no open slots.
func (r Record) IsFull() bool {
	return r.MaxPlayers > 0 && r.CurrentPlayers >= r.MaxPlayers
}

// Slots renders the player count as "current/max".
func (r Record) Slots() string {
	return fmt.Sprintf("%d/%d", r.CurrentPlayers, r.MaxPlayers)
}

// Config holds the parameters for hosting a new session.
type Config struct {
	DisplayName         string `json:"display_name" yaml:"display_name"`
	MapName             string `json:"map_name" yaml:"map_name"`
	GameMode            string `json:"game_mode" yaml:"game_mode"`
	MaxPlayers          uint   `json:"max_players" yaml:"max_players"`
	IsPublic            bool   `json:"is_public" yaml:"is_public"`
	IsPasswordProtected bool   `json:"is_password_protected" yaml:"is_password_protected"`
	Password            string `json:"password,omitempty" yaml:"-"`
}

// Query narrows a session search.
type Query struct {
	MaxResults int    `json:"max_results"`
	MapPattern string `json:"map_pattern,omitempty"` // glob, e.g. "de_*"
	GameMode   string `json:"game_mode,omitempty"`
	HideFull   bool   `json:"hide_full,omitempty"`

	// IfIdle rejects the search with ErrAlreadyInProgress instead of
	// superseding a search that is still in flight.
	IfIdle bool `json:"-"`
}

// JoinRequest identifies the session to join and the credentials to use.
type JoinRequest struct {
	Record     Record
	Password   string
	PlayerName string
}

// Hosted is a session as stored by a lobby server.
type Hosted struct {
	ID           string    `json:"id"`
	Config       Config    `json:"config"`
	PasswordHash string    `json:"password_hash,omitempty"`
	HostAddr     string    `json:"host_addr"`
	JoinToken    string    `json:"join_token"`
	Players      []string  `json:"players"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Record projects the hosted session into a search record.
func (h Hosted) Record() Record {
	return Record{
		ID:                h.ID,
		DisplayName:       h.Config.DisplayName,
		MapName:           h.Config.MapName,
		GameMode:          h.Config.GameMode,
		CurrentPlayers:    uint(len(h.Players)),
		MaxPlayers:        h.Config.MaxPlayers,
		Public:            h.Config.IsPublic,
		PasswordProtected: h.Config.IsPasswordProtected,
		JoinHandle:        h.JoinToken,
	}
}

// AddPlayer records a player joining and bumps UpdatedAt.
func (h *Hosted) AddPlayer(name string, now time.Time) {
	h.Players = append(h.Players, name)
	h.UpdatedAt = now
}

// Matches reports whether a hosted session's record satisfies q. Private
// sessions never match.
func (q Query) Matches(r Record) bool {
	if !r.Public {
		return false
	}
	if q.HideFull && r.IsFull() {
		return false
	}
	if q.GameMode != "" && !strings.EqualFold(q.GameMode, r.GameMode) {
		return false
	}
	if q.MapPattern != "" {
		ok, err := doublestar.Match(strings.ToLower(q.MapPattern), strings.ToLower(r.MapName))
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// HashPassword derives the stored form of a session password.
func HashPassword(password string) string {
	if password == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Admit tries to seat player in the session and reports the outcome.
func (h *Hosted) Admit(player, password string, now time.Time) JoinResult {
	if h.Config.MaxPlayers > 0 && uint(len(h.Players)) >= h.Config.MaxPlayers {
		return JoinFull
	}
	if h.PasswordHash != "" {
		given := HashPassword(password)
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.PasswordHash)) != 1 {
			return JoinBadPassword
		}
	}
	h.AddPlayer(player, now)
	return JoinOK
}

// ConnectString is the travel target handed to players who join.
func (h Hosted) ConnectString() string {
	return h.HostAddr + "/" + h.ID
}
