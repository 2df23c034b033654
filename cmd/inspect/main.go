package main

import (
	"chat-relay/repositories"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	raw := flag.Bool("raw", false, "Dump every key instead of the document list")
	prefix := flag.String("prefix", "", "Key prefix scanned with -raw")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := newTable()
	if *raw {
		err = dumpKeys(db, []byte(*prefix), table)
	} else {
		err = listDocuments(db, table)
	}
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
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
	return table
}

func listDocuments(db *badger.DB, table *tablewriter.Table) error {
	repo := repositories.NewDocumentRepository(db, logs.GetLoggerFromLevel(slog.LevelError))
	docs, err := repo.List(context.Background())
	if err != nil {
		return err
	}
	table.SetHeader([]string{"ID", "Filename", "Author", "Version", "Mime", "Size", "Created"})
	for _, doc := range docs {
		table.Append([]string{
			doc.ID,
			doc.Filename,
			doc.Author,
			strconv.Itoa(doc.Version),
			doc.MimeType.String(),
			strconv.Itoa(doc.Size),
			doc.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "Total", fmt.Sprint(len(docs))})
	return nil
}

func dumpKeys(db *badger.DB, prefix []byte, table *tablewriter.Table) error {
	table.SetHeader([]string{"Key", "Type", "Detail"})
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				kind, detail := repositories.Describe(key, v)
				table.Append([]string{key, kind, detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
