package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// JournalEntry is one line of the append-only activity journal.
type JournalEntry struct {
	bun.BaseModel `bun:"table:journal_entries"`

	ID      int64     `bun:",pk,autoincrement" json:"id"`
	At      time.Time `bun:"at,notnull" json:"at"`
	Topic   string    `bun:"topic,notnull" json:"topic"`
	Message string    `bun:"message,notnull" json:"message"`
}
