// Package domain defines the persistence models for shared outputs and the
// votes cast on them. These types are mapped with GORM and form the core data
// layer of the fetchbin service.
package domain

import (
	"time"
)

// Limits enforced on every ingestion channel.
const (
	// MaxContentBytes caps the size of a shared output (1 MiB).
	MaxContentBytes = 1 << 20
	// MaxLabelRunes caps the optional label (e.g. the originating command).
	MaxLabelRunes = 500
	// MaxSourceIPLen fits the longest textual IPv6 form.
	MaxSourceIPLen = 45
)

// Output is a single shared submission.
//
// Fields:
//   - ID: internal sequence key; never serialized.
//   - PublicID: opaque identifier granting read access (unique).
//   - DeleteToken: opaque identifier authorizing deletion (unique); only
//     handed out once, in the create response.
//   - Content: the submitted text, immutable.
//   - Label: optional short descriptor, NULL when absent.
//   - Hidden: excluded from public listings when true.
//   - Upvotes / Downvotes: counters owned by the vote ledger.
type Output struct {
	ID          uint      `json:"-"          gorm:"primaryKey;autoIncrement"`
	PublicID    string    `json:"public_id"  gorm:"type:varchar(32);not null;uniqueIndex:ux_outputs_public_id"`
	DeleteToken string    `json:"-"          gorm:"type:varchar(32);not null;uniqueIndex:ux_outputs_delete_token"`
	Content     string    `json:"content"    gorm:"type:text;not null"`
	Label       *string   `json:"label"      gorm:"type:varchar(2000)"`
	Hidden      bool      `json:"hidden"     gorm:"not null;default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;index"`
	Upvotes     int       `json:"upvotes"    gorm:"not null;default:0;check:upvotes >= 0"`
	Downvotes   int       `json:"downvotes"  gorm:"not null;default:0;check:downvotes >= 0"`
}

// TableName returns the database table name for Output.
func (Output) TableName() string { return "outputs" }

// Score is upvotes minus downvotes.
func (o Output) Score() int { return o.Upvotes - o.Downvotes }

// Direction is the sense of a vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Valid reports whether d is one of Up or Down.
func (d Direction) Valid() bool { return d == Up || d == Down }

// Column returns the counter column incremented by a vote in direction d.
func (d Direction) Column() string {
	if d == Down {
		return "downvotes"
	}
	return "upvotes"
}

// Vote records that a source IP voted on an output. A given IP may vote at
// most once per output regardless of direction (enforced by unique index).
type Vote struct {
	ID        uint      `json:"-"          gorm:"primaryKey;autoIncrement"`
	OutputID  uint      `json:"-"          gorm:"not null;index;uniqueIndex:ux_votes_output_ip,priority:1"`
	SourceIP  string    `json:"source_ip"  gorm:"type:varchar(45);not null;uniqueIndex:ux_votes_output_ip,priority:2"`
	Direction Direction `json:"direction"  gorm:"type:varchar(8);not null;check:direction IN ('up','down')"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`

	// Output is the voted-on submission. Votes are cascade-deleted with it.
	Output Output `json:"-" gorm:"foreignKey:OutputID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Tally is the counter pair returned after a successful vote.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// SortKey selects the ordering of output listings.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortUpvotes   SortKey = "upvotes"
	SortDownvotes SortKey = "downvotes"
	SortScore     SortKey = "score"
)

// ParseSortKey maps user input to a SortKey, falling back to SortNewest.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortUpvotes, SortDownvotes, SortScore, SortNewest:
		return k
	default:
		return SortNewest
	}
}
