// Package search maintains the full-text index answering search_rooms.
// Only public rooms are indexed; the index is rebuilt from the room catalog
// at startup and updated on every public room creation.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"

	"chatroom/domain"
)

// MinQueryLength rejects queries too short to mean anything.
const MinQueryLength = 2

type RoomIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewRoomIndex(writer *bluge.Writer, log *slog.Logger) *RoomIndex {
	return &RoomIndex{writer: writer, log: log}
}

// Index adds or replaces a room document keyed by its id.
func (i *RoomIndex) Index(room domain.Room) error {
	doc := bluge.NewDocument(room.ID).
		AddField(bluge.NewTextField("name", room.Name).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Rebuild reindexes the given rooms, typically the public catalog at boot.
func (i *RoomIndex) Rebuild(rooms []domain.Room) error {
	for _, room := range rooms {
		if err := i.Index(room); err != nil {
			return err
		}
	}
	i.log.Info("Room search index rebuilt", "rooms", len(rooms))
	return nil
}

// Search returns the ids of rooms whose name matches the query, best first.
// A wildcard clause keeps substring lookups working the way the lobby
// search box expects ("gen" finds "general").
func (i *RoomIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return nil, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("name")).
		AddShould(bluge.NewWildcardQuery("*" + strings.ToLower(query) + "*").SetField("name"))
	q.SetMinShould(1)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
