// Command viewer dumps the store in read-only mode while the server runs,
// for eyeballing the key layout from a terminal.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"chatroom/domain"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	color.Green.Printf("Scanning %q under %s\n\n", *prefix, *dbPath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Author", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Cyan.Printf("\n%d entries\n", count)
}

// toRow renders one key/value pair. Message values decode into their full
// shape; everything else falls back to the raw size.
func toRow(key string, val []byte) []string {
	parts := strings.Split(key, ":")
	kind := strings.ToUpper(parts[0])
	timestamp := "--:--:--"
	author := "--------"
	detail := fmt.Sprintf("%d bytes", len(val))

	switch parts[0] {
	case "msg":
		var message domain.Message
		if err := json.Unmarshal(val, &message); err == nil {
			kind = strings.ToUpper(string(message.MessageType))
			timestamp = message.CreatedAt.Format("15:04:05")
			author = message.Username
			if message.IsEncrypted {
				detail = color.Yellow.Sprint("<encrypted>")
			} else {
				detail = message.Content
			}
		} else if len(parts) >= 3 {
			if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				timestamp = time.Unix(0, tsNano).Format("15:04:05")
			}
		}
	case "room":
		var room domain.Room
		if err := json.Unmarshal(val, &room); err == nil && room.ID != "" {
			author = room.CreatorName
			timestamp = room.CreatedAt.Format("15:04:05")
			detail = room.Name
			if room.IsPrivate {
				detail += color.Red.Sprint(" [private]")
			}
		}
	case "member":
		var membership domain.Membership
		if err := json.Unmarshal(val, &membership); err == nil {
			author = membership.Username
			timestamp = membership.JoinedAt.Format("15:04:05")
			detail = string(membership.Role)
		}
	}

	return []string{shorten(key, 60), kind, timestamp, author, shorten(detail, 60)}
}

func shorten(s string, n int) string {
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}
